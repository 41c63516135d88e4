package store

import (
	"errors"
	"sync"
	"time"

	"site-monitor/simulator/internal/domain"
)

var ErrUnknownSite = errors.New("unknown site")

// UpdateFunc advances one site by one tick.
type UpdateFunc func(site *domain.SiteState, tick int) (domain.LogEntry, []domain.Alert)

// Memory is the site state store. Sites are only mutated through Advance;
// every read hands out deep copies.
type Memory struct {
	mu         sync.RWMutex
	tick       int
	sites      []*domain.SiteState
	logs       []domain.LogEntry
	alerts     []domain.Alert
	logLimit   int
	alertLimit int
	now        func() time.Time
}

func NewMemory(logLimit, alertLimit int) *Memory {
	return &Memory{
		logLimit:   logLimit,
		alertLimit: alertLimit,
		now:        time.Now,
	}
}

// Reset replaces all sites, zeroes the tick and empties both feeds.
func (m *Memory) Reset(sites []*domain.SiteState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = 0
	m.sites = sites
	m.logs = nil
	m.alerts = nil
}

// Advance increments the tick and runs update over every site in order.
func (m *Memory) Advance(update UpdateFunc) domain.TickResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tick++
	res := domain.TickResult{
		Tick:  m.tick,
		At:    m.now(),
		Sites: make([]domain.SiteSnapshot, 0, len(m.sites)),
		Logs:  make([]domain.LogEntry, 0, len(m.sites)),
	}
	for _, s := range m.sites {
		log, alerts := update(s, m.tick)
		res.Logs = append(res.Logs, log)
		res.Alerts = append(res.Alerts, alerts...)
		res.Sites = append(res.Sites, s.Snapshot())
	}

	m.logs = keepLast(append(m.logs, res.Logs...), m.logLimit)
	m.alerts = keepLast(append(m.alerts, res.Alerts...), m.alertLimit)
	return res
}

func keepLast[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	out := make([]T, limit)
	copy(out, items[len(items)-limit:])
	return out
}

func (m *Memory) Tick() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tick
}

func (m *Memory) Sites() []*domain.SiteState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SiteState, len(m.sites))
	for i, s := range m.sites {
		out[i] = s.Clone()
	}
	return out
}

func (m *Memory) Site(name string) (*domain.SiteState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sites {
		if s.Name == name {
			return s.Clone(), nil
		}
	}
	return nil, ErrUnknownSite
}

func (m *Memory) HasSite(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sites {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Filter narrows feed reads. Zero values match everything; Limit keeps the
// most recent entries.
type Filter struct {
	Site  string
	Type  domain.AlertType
	Limit int
}

func (m *Memory) Logs(f Filter) []domain.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.LogEntry, 0, len(m.logs))
	for _, l := range m.logs {
		if f.Site != "" && l.Site != f.Site {
			continue
		}
		out = append(out, l)
	}
	return keepLast(out, f.Limit)
}

func (m *Memory) Alerts(f Filter) []domain.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if f.Site != "" && a.Site != f.Site {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		a.Corrective = append([]string(nil), a.Corrective...)
		out = append(out, a)
	}
	return keepLast(out, f.Limit)
}
