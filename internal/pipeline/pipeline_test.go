package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"site-monitor/simulator/internal/domain"
)

type fakeStore struct {
	mu     sync.Mutex
	writes []domain.SiteSnapshot
}

func (f *fakeStore) PipelineStateUpdate(_ context.Context, s *domain.SiteSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, *s)
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	alerts   []domain.Alert
	failSite string
}

func (f *fakeSink) PublishAlert(_ context.Context, a domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.Site == f.failSite {
		return errors.New("boom")
	}
	f.alerts = append(f.alerts, a)
	return nil
}

func result(tick int, alerts ...domain.Alert) *domain.TickResult {
	return &domain.TickResult{
		Tick: tick,
		Sites: []domain.SiteSnapshot{
			{Name: "A", Violations: tick},
			{Name: "B", Violations: tick * 10},
		},
		Alerts: alerts,
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1, 1)

	d.Dispatch(result(1, domain.Alert{Site: "A"}))
	d.Dispatch(result(2, domain.Alert{Site: "A"}))

	require.Len(t, d.LiveChan, 1)
	assert.Equal(t, 1, (<-d.LiveChan).Tick)
	assert.Len(t, d.StateChan, 1)
	assert.Len(t, d.AlertChan, 1)
}

func TestDispatcher_SkipsAlertChannelWithoutAlerts(t *testing.T) {
	d := NewDispatcher(2, 2, 2)

	d.Dispatch(result(1))

	assert.Len(t, d.LiveChan, 1)
	assert.Len(t, d.StateChan, 1)
	assert.Empty(t, d.AlertChan)
}

func TestDispatcher_DisabledSinks(t *testing.T) {
	d := NewDispatcher(1, 0, 0)
	assert.Nil(t, d.StateChan)
	assert.Nil(t, d.AlertChan)

	d.Dispatch(result(1, domain.Alert{Site: "A"}))
	assert.Len(t, d.LiveChan, 1)

	d.Close()
	_, ok := <-d.LiveChan
	assert.True(t, ok)
	_, ok = <-d.LiveChan
	assert.False(t, ok)
}

func TestStateWriter_WritesLatestPerSite(t *testing.T) {
	ch := make(chan *domain.TickResult, 4)
	store := &fakeStore{}
	w := NewStateWriter(ch, store, zap.NewNop(), 10, 60_000)

	ch <- result(1)
	ch <- result(2)
	close(ch)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("state writer did not exit")
	}

	require.Len(t, store.writes, 2)
	assert.Equal(t, "A", store.writes[0].Name)
	assert.Equal(t, 2, store.writes[0].Violations)
	assert.Equal(t, "B", store.writes[1].Name)
	assert.Equal(t, 20, store.writes[1].Violations)
}

func TestStateWriter_FlushesOnBatchSize(t *testing.T) {
	ch := make(chan *domain.TickResult)
	store := &fakeStore{}
	w := NewStateWriter(ch, store, zap.NewNop(), 1, 60_000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	ch <- result(1)
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.writes) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestAlertPublisher_ContinuesAfterFailure(t *testing.T) {
	ch := make(chan *domain.TickResult, 1)
	sink := &fakeSink{failSite: "A"}
	p := NewAlertPublisher(ch, sink, zap.NewNop())

	ch <- result(1,
		domain.Alert{Site: "A", Type: domain.AlertViolation},
		domain.Alert{Site: "B", Type: domain.AlertTamper},
	)
	close(ch)
	p.Run(context.Background())

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "B", sink.alerts[0].Site)
}

func TestNewStateWriter_InvalidTuningFallsBack(t *testing.T) {
	for _, tc := range []struct{ batch, flush int }{{0, 0}, {-1, -50}} {
		ch := make(chan *domain.TickResult, 1)
		store := &fakeStore{}
		w := NewStateWriter(ch, store, zap.NewNop(), tc.batch, tc.flush)
		assert.Equal(t, defaultBatchSize, w.batchSize)
		assert.Equal(t, defaultFlushMS, w.flushMS)

		ch <- result(1)
		close(ch)
		require.NotPanics(t, func() { w.Run(context.Background()) })
		assert.Len(t, store.writes, 2)
	}
}
