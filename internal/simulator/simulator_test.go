package simulator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time { return time.Date(2024, 5, 1, hour, 30, 15, 500, time.UTC) }
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestNew_InitialState(t *testing.T) {
	s := New(3, WithClock(fixedClock(9)))
	snap := s.Current()

	if snap.Temperature != 72.0 || snap.Humidity != 45.0 {
		t.Errorf("initial = %.1f/%.1f; want 72.0/45.0", snap.Temperature, snap.Humidity)
	}
	if snap.FrontDoorOpen || snap.BackDoorOpen {
		t.Error("doors should start closed")
	}
	if len(snap.Windows) != 3 {
		t.Errorf("windows = %d; want 3", len(snap.Windows))
	}
	if snap.Timestamp.Nanosecond() != 0 {
		t.Errorf("timestamp not truncated to seconds: %v", snap.Timestamp)
	}
}

func TestStep_StaysInRangeAndKeepsArity(t *testing.T) {
	for _, hour := range []int{3, 8, 14, 20} {
		s := New(3, WithRand(seeded(uint64(hour))), WithClock(fixedClock(hour)))
		for i := 0; i < 5000; i++ {
			snap := s.Step()
			if snap.Temperature < MinTemperature || snap.Temperature > MaxTemperature {
				t.Fatalf("hour %d step %d: temperature %v out of range", hour, i, snap.Temperature)
			}
			if snap.Humidity < MinHumidity || snap.Humidity > MaxHumidity {
				t.Fatalf("hour %d step %d: humidity %v out of range", hour, i, snap.Humidity)
			}
			if len(snap.Windows) != 3 {
				t.Fatalf("hour %d step %d: %d windows", hour, i, len(snap.Windows))
			}
			if snap.Temperature != math.Round(snap.Temperature*10)/10 {
				t.Fatalf("temperature %v not rounded to one decimal", snap.Temperature)
			}
		}
	}
}

func TestStep_NightDriftsDownToFloor(t *testing.T) {
	s := New(0, WithRand(seeded(7)), WithClock(fixedClock(2)))
	var last Snapshot
	for i := 0; i < 2000; i++ {
		last = s.Step()
	}
	// With no openings the night bias of -0.3 per tick dominates the ±0.5 noise.
	if last.Temperature > MinTemperature+5 {
		t.Errorf("temperature after a long night = %v; want near %v", last.Temperature, MinTemperature)
	}
}

func TestStep_Deterministic(t *testing.T) {
	a := New(3, WithRand(seeded(42)), WithClock(fixedClock(13)))
	b := New(3, WithRand(seeded(42)), WithClock(fixedClock(13)))
	for i := 0; i < 50; i++ {
		sa, sb := a.Step(), b.Step()
		if sa.Temperature != sb.Temperature || sa.Humidity != sb.Humidity || sa.FrontDoorOpen != sb.FrontDoorOpen {
			t.Fatalf("step %d diverged: %+v vs %+v", i, sa, sb)
		}
	}
}

func TestSnapshot_WindowsAreCopied(t *testing.T) {
	s := New(2, WithRand(seeded(1)))
	snap := s.Current()
	snap.Windows[0] = true

	if s.Current().Windows[0] {
		t.Error("mutating a snapshot changed simulator state")
	}
}

func TestTimeOfDayBias(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{0, -0.3}, {5, -0.3}, {6, 0.05}, {11, 0.05}, {12, 0.1}, {17, 0.1}, {18, -0.05}, {21, -0.05}, {22, -0.3}, {23, -0.3},
	}
	for _, tt := range tests {
		if got := timeOfDayBias(tt.hour); got != tt.want {
			t.Errorf("timeOfDayBias(%d) = %v; want %v", tt.hour, got, tt.want)
		}
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	snaps  []Snapshot
	err    error
}

func (p *recordingPublisher) PublishJSON(topic string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.snaps = append(p.snaps, v.(Snapshot))
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_StopsAfterSteps(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRunner(New(3, WithRand(seeded(3))), pub, RunnerConfig{
		HomeID:   "home-1",
		Topic:    "homenet/home/home-1/telemetry",
		Interval: 10 * time.Millisecond,
		Steps:    3,
	}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.snaps) != 3 {
		t.Fatalf("published %d snapshots; want 3", len(pub.snaps))
	}
	if pub.snaps[0].HomeID != "home-1" || pub.topics[0] != "homenet/home/home-1/telemetry" {
		t.Errorf("first publish = %q %+v", pub.topics[0], pub.snaps[0])
	}
	if r.Ticks() != 3 {
		t.Errorf("Ticks = %d; want 3", r.Ticks())
	}
}

func TestRunner_ContextCancelAndPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("not connected")}
	r := NewRunner(New(1), pub, RunnerConfig{Interval: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v; want deadline exceeded", err)
	}
	if r.Ticks() == 0 {
		t.Error("runner never ticked")
	}
}

func TestRunner_LogsWithoutPublisher(t *testing.T) {
	r := NewRunner(New(3), nil, RunnerConfig{Interval: 10 * time.Millisecond, Steps: 1}, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunner_InvalidInterval(t *testing.T) {
	r := NewRunner(New(3), nil, RunnerConfig{}, quietLogger())
	if err := r.Run(context.Background()); err == nil {
		t.Error("Run with zero interval = nil")
	}
}
