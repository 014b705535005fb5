package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/plug2mqtt/cmd"
	"github.com/anicoll/plug2mqtt/internal/pkg/config"
)

func main() {
	defaults, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	publishFlags := append(commonFlags(defaults),
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to the plug configuration file",
			Value: defaults.ConfigPath,
		},
		&cli.DurationFlag{
			Name:  "device-timeout",
			Usage: "timeout for a single request to a plug",
			Value: defaults.DeviceTimeout,
		},
	)

	listenFlags := append(commonFlags(defaults),
		&cli.StringFlag{
			Name:     "topic",
			Usage:    "topic filter to subscribe to, e.g. devices/plug/#",
			Value:    defaults.ListenCfg.Topic,
			Required: defaults.ListenCfg.Topic == "",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "power in watts above which a device is considered on",
			Value: defaults.ListenCfg.Threshold,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "age after which a device state is unknown",
			Value: defaults.ListenCfg.Timeout,
		},
	)

	app := &cli.App{
		Name:   "plug2mqtt",
		Usage:  "publish smart plug readings to mqtt",
		Action: cmd.PublishCommand,
		Flags:  publishFlags,
		Commands: []*cli.Command{
			{
				Name:   "publish",
				Usage:  "poll plugs and publish their state",
				Action: cmd.PublishCommand,
				Flags:  publishFlags,
			},
			{
				Name:   "listen",
				Usage:  "subscribe to plug topics and report on/off state",
				Action: cmd.ListenCommand,
				Flags:  listenFlags,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags(defaults *config.Settings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "loglevel",
			Aliases: []string{"l"},
			Value:   defaults.LogLevel,
		},
		&cli.StringFlag{
			Name:  "hostname",
			Usage: "mqtt broker host",
			Value: defaults.MqttCfg.Host,
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "mqtt broker port",
			Value: defaults.MqttCfg.Port,
		},
		&cli.StringFlag{
			Name:  "mqtt-user",
			Value: defaults.MqttCfg.Username,
		},
		&cli.StringFlag{
			Name:  "mqtt-pass",
			Value: defaults.MqttCfg.Password,
		},
		&cli.DurationFlag{
			Name:  "sleep",
			Usage: "interval between polling cycles",
			Value: defaults.Sleep,
		},
	}
}
