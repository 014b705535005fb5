package plug

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/config"
	"github.com/anicoll/plug2mqtt/internal/pkg/model"
	"github.com/anicoll/plug2mqtt/internal/pkg/tapo"
)

var (
	ErrConnectFailed = errors.New("connect failed")
	ErrQueryFailed   = errors.New("query failed")
)

// Device is a live, authenticated connection to a plug.
type Device interface {
	DeviceInfo(ctx context.Context) (*tapo.DeviceInfo, error)
	EnergyUsage(ctx context.Context) (*tapo.EnergyUsage, error)
}

// Dialer opens a Device connection.
type Dialer interface {
	Dial(ctx context.Context, hostname, username, password string) (Device, error)
}

type DialerFunc func(ctx context.Context, hostname, username, password string) (Device, error)

func (f DialerFunc) Dial(ctx context.Context, hostname, username, password string) (Device, error) {
	return f(ctx, hostname, username, password)
}

// TapoDialer dials plugs with the tapo protocol client.
func TapoDialer(httpClient *http.Client) Dialer {
	return DialerFunc(func(ctx context.Context, hostname, username, password string) (Device, error) {
		c, err := tapo.Connect(ctx, httpClient, hostname, username, password)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

type State int

const (
	Unconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "unconnected"
}

// Session owns the connection to a single plug. A session must not be used
// by more than one goroutine at a time.
type Session struct {
	cfg    config.Device
	dialer Dialer
	state  State
	device Device // only set while state is Connected
	logger *zap.Logger
}

func New(cfg config.Device, dialer Dialer) *Session {
	return &Session{
		cfg:    cfg,
		dialer: dialer,
		state:  Unconnected,
		logger: zap.L().With(zap.String("hostname", cfg.Hostname)),
	}
}

func (s *Session) Hostname() string {
	return s.cfg.Hostname
}

func (s *Session) Topic() string {
	return s.cfg.Topic
}

func (s *Session) ExtraData() map[string]any {
	return s.cfg.ExtraData()
}

func (s *Session) State() State {
	return s.state
}

// Connect performs the handshake and login. On failure the session stays
// Unconnected so the next call starts from scratch.
func (s *Session) Connect(ctx context.Context) error {
	s.logger.Info("connecting to plug")
	device, err := s.dialer.Dial(ctx, s.cfg.Hostname, s.cfg.Username, s.cfg.Password)
	if err != nil {
		s.state, s.device = Unconnected, nil
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, s.cfg.Hostname, err)
	}
	s.state, s.device = Connected, device
	s.logger.Info("connected to plug")
	return nil
}

// Fetch returns the current reading, connecting first if needed. Query
// failures keep the connection; only connect failures drop it.
func (s *Session) Fetch(ctx context.Context) (model.Reading, error) {
	if s.state == Unconnected {
		if err := s.Connect(ctx); err != nil {
			return model.Reading{}, err
		}
	}

	info, err := s.device.DeviceInfo(ctx)
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: %s: device info: %w", ErrQueryFailed, s.cfg.Hostname, err)
	}
	s.logger.Debug("got device info", zap.Bool("device_on", info.DeviceOn))

	usage, err := s.device.EnergyUsage(ctx)
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: %s: energy usage: %w", ErrQueryFailed, s.cfg.Hostname, err)
	}

	return normalize(info, usage, s.cfg.Hostname)
}

func normalize(info *tapo.DeviceInfo, usage *tapo.EnergyUsage, hostname string) (model.Reading, error) {
	if usage.CurrentPower == nil {
		return model.Reading{}, fmt.Errorf("%w: %s: energy usage has no current_power", ErrQueryFailed, hostname)
	}
	return model.Reading{
		On:                info.DeviceOn,
		CurrentPowerWatts: *usage.CurrentPower / 1000,
		TodayEnergy:       usage.TodayEnergy,
		TodayRuntime:      usage.TodayRuntime,
		Nickname:          info.DecodedNickname(),
	}, nil
}
