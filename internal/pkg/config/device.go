package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/model"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Device is one entry of the device configuration file.
type Device struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	// Data is merged into every payload published for the device. It has to
	// be a JSON object, which Validate enforces.
	Data any `json:"data,omitempty"`
}

// ExtraData returns Data as a map. It is only meaningful after Validate.
func (d Device) ExtraData() map[string]any {
	m, _ := d.Data.(map[string]any)
	return m
}

// Load reads the JSON device list from path.
func Load(path string) ([]Device, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	devices := []Device{}
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return devices, nil
}

// Validate checks the device list for missing fields, malformed extra data,
// reserved key collisions and duplicate hostnames or topics. It stops at the
// first violation.
func Validate(devices []Device) error {
	zap.L().Info("checking configuration", zap.Int("devices", len(devices)))

	for i, d := range devices {
		required := []struct{ name, value string }{
			{"hostname", d.Hostname},
			{"username", d.Username},
			{"password", d.Password},
			{"topic", d.Topic},
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("%w: device %d (%s): missing %s", ErrInvalidConfig, i, d.Hostname, r.name)
			}
		}

		if d.Data == nil {
			continue
		}
		data, ok := d.Data.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: device %s: data has to be an object", ErrInvalidConfig, d.Hostname)
		}
		for _, key := range model.ReservedKeys {
			if _, exists := data[key]; exists {
				return fmt.Errorf("%w: device %s: data contains reserved key %q", ErrInvalidConfig, d.Hostname, key)
			}
		}
	}

	if dups := lo.FindDuplicates(lo.Map(devices, func(d Device, _ int) string { return d.Hostname })); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate hostnames %v", ErrInvalidConfig, dups)
	}
	if dups := lo.FindDuplicates(lo.Map(devices, func(d Device, _ int) string { return d.Topic })); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate topics %v", ErrInvalidConfig, dups)
	}
	return nil
}
