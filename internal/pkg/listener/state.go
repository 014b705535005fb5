package listener

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type State string

func (s State) String() string {
	return string(s)
}

const (
	On      State = "on"
	Off     State = "off"
	Unknown State = "unknown"
)

// Observation is the last sample seen for a device.
type Observation struct {
	Name      string
	LastPower float64
	LastSeen  time.Time
}

// Classify derives the device state. A sample older than timeout yields
// Unknown, otherwise the device is On when drawing more than threshold watts.
func Classify(obs Observation, now time.Time, threshold float64, timeout time.Duration) State {
	if now.Sub(obs.LastSeen) >= timeout {
		return Unknown
	}
	if obs.LastPower > threshold {
		return On
	}
	return Off
}

// Store holds one Observation per device name. Entries are created on the
// first sample and only ever updated afterwards.
type Store struct {
	mu      sync.Mutex
	devices map[string]*Observation
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		devices: map[string]*Observation{},
		now:     time.Now,
	}
}

// Update records a power sample for name at the current time.
func (s *Store) Update(name string, power float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs, ok := s.devices[name]
	if !ok {
		obs = &Observation{Name: name}
		s.devices[name] = obs
	}
	obs.LastPower = power
	obs.LastSeen = s.now()
}

// Snapshot returns a copy of every observation ordered by name.
func (s *Store) Snapshot() []Observation {
	s.mu.Lock()
	out := make([]Observation, 0, len(s.devices))
	for _, obs := range s.devices {
		out = append(out, *obs)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Observation) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
