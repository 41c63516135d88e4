package pipeline

import (
	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/metrics"
)

// Dispatcher fans tick results out to the downstream workers. A nil channel
// means that sink is disabled.
type Dispatcher struct {
	LiveChan  chan *domain.TickResult
	StateChan chan *domain.TickResult
	AlertChan chan *domain.TickResult
}

func NewDispatcher(liveSize, stateSize, alertSize int) *Dispatcher {
	d := &Dispatcher{}
	if liveSize > 0 {
		d.LiveChan = make(chan *domain.TickResult, liveSize)
	}
	if stateSize > 0 {
		d.StateChan = make(chan *domain.TickResult, stateSize)
	}
	if alertSize > 0 {
		d.AlertChan = make(chan *domain.TickResult, alertSize)
	}
	return d
}

// Dispatch never blocks the simulation: a full channel drops the result.
func (d *Dispatcher) Dispatch(res *domain.TickResult) {
	send(d.LiveChan, res, "live")
	send(d.StateChan, res, "state")
	if len(res.Alerts) > 0 {
		send(d.AlertChan, res, "alert")
	}
}

func send(ch chan *domain.TickResult, res *domain.TickResult, name string) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
		metrics.ChannelDrops.WithLabelValues(name).Inc()
	}
}

// Close closes every channel so that workers drain and exit.
func (d *Dispatcher) Close() {
	for _, ch := range []chan *domain.TickResult{d.LiveChan, d.StateChan, d.AlertChan} {
		if ch != nil {
			close(ch)
		}
	}
}
