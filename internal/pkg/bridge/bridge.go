package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/model"
	"github.com/anicoll/plug2mqtt/internal/pkg/publisher"
)

type poller interface {
	ConnectAll(ctx context.Context)
	PollAll(ctx context.Context) model.CycleResult
}

type sink interface {
	Service() error
	Publish(topic string, payload []byte) error
}

type bridge struct {
	poller   poller
	sink     sink
	interval time.Duration
	logger   *zap.Logger
}

func New(p poller, s sink, interval time.Duration) *bridge {
	return &bridge{
		poller:   p,
		sink:     s,
		interval: interval,
		logger:   zap.L(),
	}
}

// Run connects to every plug and then polls and publishes until ctx is
// cancelled or the broker fails beyond recovery. Device failures never end
// the loop.
func (b *bridge) Run(ctx context.Context) error {
	b.poller.ConnectAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	for cycle := 1; ; cycle++ {
		b.logger.Debug("starting cycle", zap.Int("cycle", cycle))
		if err := b.sink.Service(); err != nil {
			return err
		}

		results := b.poller.PollAll(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := publisher.PublishAll(b.sink, results); err != nil {
			return err
		}

		b.logger.Debug("sleeping", zap.Duration("interval", b.interval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.interval):
		}
	}
}
