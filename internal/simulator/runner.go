package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Publisher sends a snapshot somewhere. The MQTT publisher satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Runner ticks a Simulator on a schedule and publishes each snapshot.
type Runner struct {
	sim       *Simulator
	publisher Publisher
	homeID    string
	topic     string
	interval  time.Duration
	steps     int
	logger    *slog.Logger

	mu    sync.Mutex
	ticks int
	done  chan struct{}
	once  sync.Once
}

type RunnerConfig struct {
	HomeID   string
	Topic    string
	Interval time.Duration
	// Steps stops the runner after that many ticks; 0 runs until ctx ends.
	Steps int
}

// NewRunner builds a runner. With a nil publisher snapshots are only logged.
func NewRunner(sim *Simulator, publisher Publisher, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sim:       sim,
		publisher: publisher,
		homeID:    cfg.HomeID,
		topic:     cfg.Topic,
		interval:  cfg.Interval,
		steps:     cfg.Steps,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run blocks until ctx is done or the configured number of steps is reached.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("simulator: interval must be positive, got %s", r.interval)
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(r.interval).Do(r.tick); err != nil {
		return fmt.Errorf("schedule simulator: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	r.logger.Info("simulator started", "home_id", r.homeID, "interval", r.interval, "steps", r.steps)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return nil
	}
}

// Ticks reports how many snapshots have been produced.
func (r *Runner) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func (r *Runner) tick() {
	r.mu.Lock()
	if r.steps > 0 && r.ticks >= r.steps {
		r.mu.Unlock()
		return
	}
	r.ticks++
	n := r.ticks
	r.mu.Unlock()

	snap := r.sim.Step()
	snap.HomeID = r.homeID

	if r.publisher == nil {
		r.logger.Info("simulated snapshot",
			"home_id", snap.HomeID,
			"temperature", snap.Temperature,
			"humidity", snap.Humidity,
			"front_door_open", snap.FrontDoorOpen,
			"back_door_open", snap.BackDoorOpen,
			"windows", snap.Windows,
		)
	} else if err := r.publisher.PublishJSON(r.topic, snap); err != nil {
		r.logger.Warn("publish snapshot failed", "topic", r.topic, "error", err)
	}

	if r.steps > 0 && n >= r.steps {
		r.once.Do(func() { close(r.done) })
	}
}
