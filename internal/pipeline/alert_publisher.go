package pipeline

import (
	"context"

	"go.uber.org/zap"

	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/metrics"
)

type AlertSink interface {
	PublishAlert(ctx context.Context, alert domain.Alert) error
}

// AlertPublisher forwards every alert of a tick to the sink, in order.
type AlertPublisher struct {
	ch     <-chan *domain.TickResult
	sink   AlertSink
	logger *zap.Logger
}

func NewAlertPublisher(
	ch <-chan *domain.TickResult,
	sink AlertSink,
	logger *zap.Logger,
) *AlertPublisher {
	return &AlertPublisher{ch: ch, sink: sink, logger: logger}
}

func (p *AlertPublisher) Run(ctx context.Context) {
	for {
		select {
		case res, ok := <-p.ch:
			if !ok {
				return
			}
			p.publish(ctx, res)
		case <-ctx.Done():
			return
		}
	}
}

func (p *AlertPublisher) publish(ctx context.Context, res *domain.TickResult) {
	for _, a := range res.Alerts {
		if err := p.sink.PublishAlert(ctx, a); err != nil {
			metrics.RedisWriteFailures.Inc()
			p.logger.Warn("alert publish failed",
				zap.String("site", a.Site),
				zap.String("type", string(a.Type)),
				zap.Error(err))
			continue
		}
		p.logger.Debug("alert published",
			zap.String("site", a.Site),
			zap.String("type", string(a.Type)),
			zap.Int("tick", a.Tick))
	}
}
