// Package simulator produces indoor telemetry for a home: temperature,
// humidity and the open state of doors and windows, as a random walk.
package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	MinTemperature = 60.0
	MaxTemperature = 85.0
	MinHumidity    = 25.0
	MaxHumidity    = 70.0

	initialTemperature = 72.0
	initialHumidity    = 45.0

	doorToggleProbability   = 0.1
	windowToggleProbability = 0.2
)

// Snapshot is one tick of telemetry. Temperature is in °F, humidity in %.
type Snapshot struct {
	HomeID        string    `json:"home_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	FrontDoorOpen bool      `json:"front_door_open"`
	BackDoorOpen  bool      `json:"back_door_open"`
	Windows       []bool    `json:"windows"`
}

type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time

	temperature float64
	humidity    float64
	frontDoor   bool
	backDoor    bool
	windows     []bool
}

type Option func(*Simulator)

// WithRand sets the random source, for reproducible runs.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithClock sets the clock used for timestamps and the time-of-day bias.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// New returns a simulator with everything closed at 72 °F and 45 %.
func New(windows int, opts ...Option) *Simulator {
	if windows < 0 {
		windows = 0
	}
	s := &Simulator{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
		temperature: initialTemperature,
		humidity:    initialHumidity,
		windows:     make([]bool, windows),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step advances the state by one tick and returns the new snapshot.
func (s *Simulator) Step() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.toggleOpenings()
	open := s.anythingOpen()

	drift := s.uniform(-0.5, 0.5) + timeOfDayBias(now.Hour())
	if open {
		drift += s.uniform(-1.0, 1.0)
	}
	s.temperature = clamp(s.temperature+drift, MinTemperature, MaxTemperature)

	drift = s.uniform(-0.5, 0.5)
	if open {
		drift += s.uniform(0.2, 1.0)
	}
	s.humidity = clamp(s.humidity+drift, MinHumidity, MaxHumidity)

	return s.snapshot(now)
}

// Current returns the state without advancing it.
func (s *Simulator) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.now())
}

func (s *Simulator) toggleOpenings() {
	if s.rng.Float64() < doorToggleProbability {
		s.frontDoor = !s.frontDoor
	}
	if s.rng.Float64() < doorToggleProbability {
		s.backDoor = !s.backDoor
	}
	for i := range s.windows {
		if s.rng.Float64() < windowToggleProbability {
			s.windows[i] = !s.windows[i]
		}
	}
}

func (s *Simulator) anythingOpen() bool {
	if s.frontDoor || s.backDoor {
		return true
	}
	for _, w := range s.windows {
		if w {
			return true
		}
	}
	return false
}

func (s *Simulator) snapshot(now time.Time) Snapshot {
	windows := make([]bool, len(s.windows))
	copy(windows, s.windows)
	return Snapshot{
		Timestamp:     now.Truncate(time.Second),
		Temperature:   round1(s.temperature),
		Humidity:      round1(s.humidity),
		FrontDoorOpen: s.frontDoor,
		BackDoorOpen:  s.backDoor,
		Windows:       windows,
	}
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// timeOfDayBias warms mornings and afternoons and cools evenings and nights.
func timeOfDayBias(hour int) float64 {
	switch {
	case hour >= 6 && hour < 12:
		return 0.05
	case hour >= 12 && hour < 18:
		return 0.1
	case hour >= 18 && hour < 22:
		return -0.05
	default:
		return -0.3
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
