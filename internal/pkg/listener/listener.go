package listener

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/config"
	"github.com/anicoll/plug2mqtt/internal/pkg/mqtt"
)

type subscriber interface {
	Service() error
	Subscribe(filter string, handler mqtt.MessageHandler) error
}

// sample is the part of a published plug payload the listener reads. On may
// hold any JSON value.
type sample struct {
	On           any      `json:"on"`
	CurrentPower *float64 `json:"current_power"`
}

// off reports whether the message carries an "on" field with a false-like
// value: false, 0, an empty string, array or object. A missing or null field
// is not off.
func (s sample) off() bool {
	switch v := s.On.(type) {
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

type listener struct {
	store    *Store
	sink     subscriber
	cfg      config.ListenConfig
	interval time.Duration
	logger   *zap.Logger
}

func New(store *Store, sink subscriber, cfg config.ListenConfig, interval time.Duration) *listener {
	return &listener{
		store:    store,
		sink:     sink,
		cfg:      cfg,
		interval: interval,
		logger:   zap.L(),
	}
}

// HandleMessage records the sample carried by a plug message. The device
// name is the last segment of the topic.
func (l *listener) HandleMessage(topic string, payload []byte) {
	l.logger.Debug("new message", zap.String("topic", topic), zap.ByteString("payload", payload))

	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		l.logger.Error("not a valid topic", zap.String("topic", topic))
		return
	}
	name := topic[idx+1:]

	s := sample{}
	if err := json.Unmarshal(payload, &s); err != nil {
		l.logger.Error("cannot parse message", zap.String("topic", topic), zap.Error(err))
		return
	}

	switch {
	case s.off():
		l.store.Update(name, 0)
	case s.CurrentPower != nil:
		l.store.Update(name, *s.CurrentPower)
	default:
		l.logger.Debug("message has no power sample", zap.String("device", name))
		return
	}
	l.logger.Debug("updated device", zap.String("device", name))
}

// Report services the broker connection and logs the state of every device
// seen so far.
func (l *listener) Report() error {
	if err := l.sink.Service(); err != nil {
		return err
	}
	now := time.Now()
	for _, obs := range l.store.Snapshot() {
		state := Classify(obs, now, l.cfg.Threshold, l.cfg.Timeout)
		l.logger.Info(obs.Name+" = "+state.String(),
			zap.String("device", obs.Name),
			zap.String("state", state.String()),
			zap.Float64("power", obs.LastPower),
			zap.Duration("age", now.Sub(obs.LastSeen)),
		)
	}
	return nil
}

// Run subscribes to the configured topic filter and reports device states
// every interval until ctx is cancelled or the broker fails.
func (l *listener) Run(ctx context.Context) error {
	if err := l.sink.Subscribe(l.cfg.Topic, l.HandleMessage); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	logger := cronLogger{l.logger.Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	c.Schedule(cron.Every(l.interval), cron.FuncJob(func() {
		if err := l.Report(); err != nil {
			select {
			case errChan <- err:
			default:
			}
		}
	}))
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}
