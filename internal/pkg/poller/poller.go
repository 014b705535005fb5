package poller

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/plug2mqtt/internal/pkg/model"
)

type session interface {
	Hostname() string
	Topic() string
	ExtraData() map[string]any
	Connect(ctx context.Context) error
	Fetch(ctx context.Context) (model.Reading, error)
}

// Poller fans fetches out over every configured plug. Each session is only
// touched by the goroutine polling it, and cycles never overlap.
type Poller struct {
	sessions []session
	logger   *zap.Logger
}

func New[S session](sessions []S) *Poller {
	p := &Poller{
		sessions: make([]session, 0, len(sessions)),
		logger:   zap.L(),
	}
	for _, s := range sessions {
		p.sessions = append(p.sessions, s)
	}
	return p
}

// ConnectAll attempts the initial connection to every plug concurrently.
// Failures are logged and left for the first poll to retry.
func (p *Poller) ConnectAll(ctx context.Context) {
	eg := errgroup.Group{}
	for _, s := range p.sessions {
		eg.Go(func() error {
			if err := s.Connect(ctx); err != nil {
				if ctx.Err() != nil {
					p.logger.Debug("connect interrupted", zap.String("hostname", s.Hostname()))
					return nil
				}
				p.logger.Error("cannot connect to plug", zap.String("hostname", s.Hostname()), zap.Error(err))
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// PollAll fetches every plug concurrently and waits for all of them. The
// result has one entry per session, in session order; failures are carried
// as entries and never returned.
func (p *Poller) PollAll(ctx context.Context) model.CycleResult {
	results := make(model.CycleResult, len(p.sessions))

	eg := errgroup.Group{}
	for i, s := range p.sessions {
		eg.Go(func() error {
			results[i] = p.poll(ctx, s)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (p *Poller) poll(ctx context.Context, s session) model.Result {
	res := model.Result{Hostname: s.Hostname(), Topic: s.Topic()}

	reading, err := s.Fetch(ctx)
	if err != nil {
		res.Err = err
		if ctx.Err() != nil {
			p.logger.Debug("poll interrupted", zap.String("hostname", s.Hostname()))
			return res
		}
		p.logger.Error("cannot get device state", zap.String("hostname", s.Hostname()), zap.Error(err))
		return res
	}
	res.Payload = model.NewPayload(reading, s.ExtraData())
	p.logger.Debug("polled plug", zap.String("hostname", s.Hostname()), zap.Any("payload", res.Payload))
	return res
}
