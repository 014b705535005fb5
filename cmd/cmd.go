package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/bridge"
	"github.com/anicoll/plug2mqtt/internal/pkg/config"
	"github.com/anicoll/plug2mqtt/internal/pkg/listener"
	"github.com/anicoll/plug2mqtt/internal/pkg/mqtt"
	"github.com/anicoll/plug2mqtt/internal/pkg/plug"
	"github.com/anicoll/plug2mqtt/internal/pkg/poller"
)

// PublishCommand polls the configured plugs and publishes their state to
// MQTT until interrupted.
func PublishCommand(ctx *cli.Context) error {
	cfg := settingsFromFlags(ctx)
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()

	devices, err := config.Load(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return err
	}

	broker := mqtt.New(mqtt.NewClient(cfg.MqttCfg))
	dialer := plug.TapoDialer(&http.Client{Timeout: cfg.DeviceTimeout})

	return graceful(runPublish(ctx.Context, cfg, devices, broker, dialer))
}

// ListenCommand subscribes to plug topics and reports the derived on/off
// state of every device until interrupted.
func ListenCommand(ctx *cli.Context) error {
	cfg := settingsFromFlags(ctx)
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()

	broker := mqtt.New(mqtt.NewClient(cfg.MqttCfg))
	return graceful(runListen(ctx.Context, cfg, broker))
}

func runPublish(ctx context.Context, cfg *config.Settings, devices []config.Device, broker BrokerService, dialer plug.Dialer) error {
	logger := zap.L()
	if err := config.Validate(devices); err != nil {
		logger.Error("configuration check failed", zap.Error(err))
		return err
	}

	logger.Info("connecting to broker", zap.String("host", cfg.MqttCfg.Host), zap.Int("port", cfg.MqttCfg.Port))
	if err := broker.Connect(); err != nil {
		return err
	}
	defer broker.Disconnect()

	sessions := lo.Map(devices, func(d config.Device, _ int) *plug.Session {
		return plug.New(d, dialer)
	})
	return bridge.New(poller.New(sessions), broker, cfg.Sleep).Run(ctx)
}

func runListen(ctx context.Context, cfg *config.Settings, broker BrokerService) error {
	logger := zap.L()
	logger.Info("connecting to broker", zap.String("host", cfg.MqttCfg.Host), zap.Int("port", cfg.MqttCfg.Port))
	if err := broker.Connect(); err != nil {
		return err
	}
	defer broker.Disconnect()

	return listener.New(listener.NewStore(), broker, cfg.ListenCfg, cfg.Sleep).Run(ctx)
}

// graceful maps an interrupt to a clean exit.
func graceful(err error) error {
	if errors.Is(err, context.Canceled) {
		zap.L().Info("interrupted, exiting")
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func settingsFromFlags(ctx *cli.Context) *config.Settings {
	return &config.Settings{
		LogLevel: ctx.String("loglevel"),
		MqttCfg: config.MqttConfig{
			Host:     ctx.String("hostname"),
			Port:     ctx.Int("port"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
		Sleep:         ctx.Duration("sleep"),
		ConfigPath:    ctx.String("config"),
		DeviceTimeout: ctx.Duration("device-timeout"),
		ListenCfg: config.ListenConfig{
			Topic:     ctx.String("topic"),
			Threshold: ctx.Float64("threshold"),
			Timeout:   ctx.Duration("timeout"),
		},
	}
}
