package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDevices() []Device {
	return []Device{
		{
			Topic:    "devices/plug/kitchen",
			Username: "foo@bar",
			Password: "Changeme",
			Hostname: "foo.iot",
		},
		{
			Topic:    "devices/plug/cellar",
			Username: "foo@bar",
			Password: "Changeme",
			Hostname: "bar.iot",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(d []Device) []Device
		wantErr string
	}{
		"valid": {
			mutate: func(d []Device) []Device { return d },
		},
		"valid with data": {
			mutate: func(d []Device) []Device {
				d[0].Data = map[string]any{"room": "kitchen", "floor": 0.0}
				return d
			},
		},
		"empty list": {
			mutate: func(d []Device) []Device { return nil },
		},
		"duplicate hostname": {
			mutate: func(d []Device) []Device {
				d[0].Hostname = d[1].Hostname
				return d
			},
			wantErr: "duplicate hostnames",
		},
		"duplicate topic": {
			mutate: func(d []Device) []Device {
				d[0].Topic = d[1].Topic
				return d
			},
			wantErr: "duplicate topics",
		},
		"missing hostname": {
			mutate: func(d []Device) []Device {
				d[1].Hostname = ""
				return d
			},
			wantErr: "missing hostname",
		},
		"missing username": {
			mutate: func(d []Device) []Device {
				d[0].Username = ""
				return d
			},
			wantErr: "missing username",
		},
		"missing password": {
			mutate: func(d []Device) []Device {
				d[0].Password = ""
				return d
			},
			wantErr: "missing password",
		},
		"missing topic": {
			mutate: func(d []Device) []Device {
				d[0].Topic = ""
				return d
			},
			wantErr: "missing topic",
		},
		"data is a list": {
			mutate: func(d []Device) []Device {
				d[0].Data = []any{"foo", "bar"}
				return d
			},
			wantErr: "data has to be an object",
		},
		"data is a scalar": {
			mutate: func(d []Device) []Device {
				d[0].Data = "foo"
				return d
			},
			wantErr: "data has to be an object",
		},
		"missing field is reported before duplicates": {
			mutate: func(d []Device) []Device {
				d[0].Hostname = d[1].Hostname
				d[1].Password = ""
				return d
			},
			wantErr: "missing password",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(tt.mutate(baseDevices()))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReservedKeys(t *testing.T) {
	for _, key := range []string{"on", "current_power", "nickname", "today_energy", "today_runtime"} {
		t.Run(key, func(t *testing.T) {
			devices := baseDevices()
			// falsy values must be rejected too
			devices[1].Data = map[string]any{"room": "cellar", key: false}
			err := Validate(devices)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), key)
			assert.Contains(t, err.Error(), "bar.iot")
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "plugs.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"hostname":"a","username":"u","password":"p","topic":"t/a"},
			{"hostname":"b","username":"u","password":"p","topic":"t/b","data":{"room":"hall"}}
		]`), 0o600))

		devices, err := Load(path)
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, "t/a", devices[0].Topic)
		assert.Nil(t, devices[0].ExtraData())
		assert.Equal(t, map[string]any{"room": "hall"}, devices[1].ExtraData())
		assert.NoError(t, Validate(devices))
	})

	t.Run("data array survives loading and fails validation", func(t *testing.T) {
		path := filepath.Join(dir, "array.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"hostname":"a","username":"u","password":"p","topic":"t/a","data":["x"]}
		]`), 0o600))

		devices, err := Load(path)
		require.NoError(t, err)
		assert.ErrorIs(t, Validate(devices), ErrInvalidConfig)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"hostname":`), 0o600))

		_, err := Load(path)
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MQTT_HOST", "broker.lan")
	t.Setenv("LISTEN_THRESHOLD", "12.5")

	s, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "broker.lan", s.MqttCfg.Host)
	assert.Equal(t, 1883, s.MqttCfg.Port)
	assert.Equal(t, 12.5, s.ListenCfg.Threshold)
	assert.Equal(t, "plugs.json", s.ConfigPath)
	assert.Equal(t, "INFO", s.LogLevel)
}
