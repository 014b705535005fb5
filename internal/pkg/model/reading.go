package model

import (
	"fmt"

	"github.com/samber/lo"
)

// Payload field names owned by the bridge. Extra device data may not use them.
const (
	KeyOn           = "on"
	KeyCurrentPower = "current_power"
	KeyNickname     = "nickname"
	KeyTodayEnergy  = "today_energy"
	KeyTodayRuntime = "today_runtime"
)

var ReservedKeys = []string{
	KeyOn,
	KeyCurrentPower,
	KeyNickname,
	KeyTodayEnergy,
	KeyTodayRuntime,
}

// IsReserved reports whether key is one of ReservedKeys.
func IsReserved(key string) bool {
	return lo.Contains(ReservedKeys, key)
}

// Reading is a normalized snapshot of one plug, taken by a single fetch.
type Reading struct {
	On                bool
	CurrentPowerWatts float64
	TodayEnergy       *float64
	TodayRuntime      *float64
	Nickname          string
}

// Payload is the JSON object published for a device.
type Payload map[string]any

// NewPayload merges extra into the fields derived from r. Extra data is
// validated against ReservedKeys at startup, so a collision here is a bug.
func NewPayload(r Reading, extra map[string]any) Payload {
	p := Payload{
		KeyOn:           r.On,
		KeyCurrentPower: r.CurrentPowerWatts,
	}
	if r.TodayEnergy != nil {
		p[KeyTodayEnergy] = *r.TodayEnergy
	}
	if r.TodayRuntime != nil {
		p[KeyTodayRuntime] = *r.TodayRuntime
	}
	if r.Nickname != "" {
		p[KeyNickname] = r.Nickname
	}
	for k, v := range extra {
		if IsReserved(k) {
			panic(fmt.Sprintf("extra data key %q collides with a reading field", k))
		}
		p[k] = v
	}
	return p
}
