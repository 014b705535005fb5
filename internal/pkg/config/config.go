package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds the process level configuration. Values are read from the
// environment and used as the defaults of the command line flags.
type Settings struct {
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"INFO"`
	MqttCfg       MqttConfig    `envPrefix:"MQTT_"`
	Sleep         time.Duration `env:"SLEEP" envDefault:"30s"`
	ConfigPath    string        `env:"CONFIG" envDefault:"plugs.json"`
	DeviceTimeout time.Duration `env:"DEVICE_TIMEOUT" envDefault:"10s"`
	ListenCfg     ListenConfig  `envPrefix:"LISTEN_"`
}

type MqttConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"1883"`
	Username string `env:"USER"`
	Password string `env:"PASS"`
}

type ListenConfig struct {
	Topic     string        `env:"TOPIC"`
	Threshold float64       `env:"THRESHOLD" envDefault:"10"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// FromEnv parses Settings from the environment, applying defaults for
// anything unset.
func FromEnv() (*Settings, error) {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return nil, err
	}
	return &s, nil
}
