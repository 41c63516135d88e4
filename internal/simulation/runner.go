// Package simulation drives the engine from a periodic timer.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/engine"
	"site-monitor/simulator/internal/metrics"
	"site-monitor/simulator/internal/store"
)

const MinInterval = 100 * time.Millisecond

var ErrInvalidInterval = errors.New("invalid tick interval")

// Speeds are the playback presets offered to dashboards.
var Speeds = []Speed{
	{Label: "0.5x", Interval: 20 * time.Second},
	{Label: "1x", Interval: 10 * time.Second},
	{Label: "2x", Interval: 5 * time.Second},
	{Label: "5x", Interval: 2 * time.Second},
}

type Speed struct {
	Label    string        `json:"label"`
	Interval time.Duration `json:"interval"`
}

// Sink receives each completed tick. Dispatch must not block.
type Sink interface {
	Dispatch(res *domain.TickResult)
}

// ResetHook runs after the simulation has been reset.
type ResetHook func(ctx context.Context, sites []string)

type Status struct {
	Tick       int           `json:"tick"`
	Running    bool          `json:"running"`
	Interval   time.Duration `json:"interval"`
	IntervalMS int64         `json:"interval_ms"`
	Sites      []string      `json:"sites"`
}

type Runner struct {
	engine *engine.Engine
	store  *store.Memory
	sink   Sink
	sites  []string
	logger *zap.Logger

	// stepMu serializes engine use; the engine's source is not safe for
	// concurrent use.
	stepMu sync.Mutex

	mu       sync.Mutex
	running  bool
	interval time.Duration
	onReset  []ResetHook

	// wake carries interval changes and restarts to the Run loop.
	wake chan time.Duration
}

func NewRunner(
	eng *engine.Engine,
	mem *store.Memory,
	sink Sink,
	sites []string,
	interval time.Duration,
	logger *zap.Logger,
) (*Runner, error) {
	if interval < MinInterval {
		return nil, fmt.Errorf("%w: %v is below %v", ErrInvalidInterval, interval, MinInterval)
	}
	if len(sites) == 0 {
		return nil, errors.New("runner needs at least one site")
	}
	r := &Runner{
		engine:   eng,
		store:    mem,
		sink:     sink,
		sites:    append([]string(nil), sites...),
		logger:   logger,
		interval: interval,
		wake:     make(chan time.Duration, 1),
	}
	mem.Reset(r.freshSites())
	return r, nil
}

func (r *Runner) OnReset(h ResetHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReset = append(r.onReset, h)
}

func (r *Runner) freshSites() []*domain.SiteState {
	out := make([]*domain.SiteState, len(r.sites))
	for i, name := range r.sites {
		out[i] = r.engine.NewSite(name)
	}
	return out
}

// Step advances every site by one tick regardless of the running state.
func (r *Runner) Step() *domain.TickResult {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()
	return r.step()
}

// tickIfRunning is the timer's step. The running flag is read under stepMu
// so a concurrent Reset can never be followed by a stale tick.
func (r *Runner) tickIfRunning() {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()
	if r.Running() {
		r.step()
	}
}

// step requires stepMu.
func (r *Runner) step() *domain.TickResult {
	res := r.store.Advance(func(site *domain.SiteState, tick int) (domain.LogEntry, []domain.Alert) {
		out := r.engine.Update(site, tick)
		return out.Log, out.Alerts
	})

	metrics.TicksTotal.Inc()
	for _, l := range res.Logs {
		metrics.ObserveSite(l.Site, l.AQI, l.WaterSpray)
	}
	for _, a := range res.Alerts {
		metrics.AlertsTotal.WithLabelValues(a.Site, string(a.Type)).Inc()
		if a.Fine > 0 {
			metrics.FinesTotal.WithLabelValues(a.Site, string(a.Type)).Add(float64(a.Fine))
		}
		if a.Severity == domain.SeverityCritical {
			r.logger.Warn("fine assessed",
				zap.String("site", a.Site),
				zap.String("type", string(a.Type)),
				zap.Int("fine", a.Fine),
				zap.Int("tick", a.Tick))
		}
	}
	r.logger.Debug("tick",
		zap.Int("tick", res.Tick),
		zap.Int("alerts", len(res.Alerts)))

	if r.sink != nil {
		r.sink.Dispatch(&res)
	}
	return &res
}

func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	interval := r.interval
	r.mu.Unlock()

	r.signal(interval)
	r.logger.Info("simulation started", zap.Duration("interval", interval))
}

func (r *Runner) Pause() {
	r.mu.Lock()
	was := r.running
	r.running = false
	r.mu.Unlock()
	if was {
		r.logger.Info("simulation paused", zap.Int("tick", r.store.Tick()))
	}
}

// Reset pauses the loop, zeroes the tick and recreates every site with a
// fresh footprint.
func (r *Runner) Reset(ctx context.Context) {
	r.mu.Lock()
	r.running = false
	hooks := append([]ResetHook(nil), r.onReset...)
	r.mu.Unlock()

	r.stepMu.Lock()
	r.store.Reset(r.freshSites())
	r.stepMu.Unlock()
	metrics.ResetSites()
	for _, h := range hooks {
		h(ctx, r.sites)
	}
	r.logger.Info("simulation reset")
}

func (r *Runner) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("%w: %v is below %v", ErrInvalidInterval, d, MinInterval)
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()

	r.signal(d)
	r.logger.Info("tick interval changed", zap.Duration("interval", d))
	return nil
}

// signal replaces any pending wake-up with d.
func (r *Runner) signal(d time.Duration) {
	for {
		select {
		case r.wake <- d:
			return
		default:
		}
		select {
		case <-r.wake:
		default:
		}
	}
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	running, interval := r.running, r.interval
	r.mu.Unlock()
	return Status{
		Tick:       r.store.Tick(),
		Running:    running,
		Interval:   interval,
		IntervalMS: interval.Milliseconds(),
		Sites:      append([]string(nil), r.sites...),
	}
}

// Run ticks while the runner is started, until ctx is cancelled. Starting
// or changing the interval restarts the period, so the first tick after
// Start lands one full interval later.
func (r *Runner) Run(ctx context.Context) {
	r.mu.Lock()
	interval := r.interval
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-r.wake:
			ticker.Reset(d)
		case <-ticker.C:
			r.tickIfRunning()
		}
	}
}
