package jobs

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepFunc removes expired items and reports how many it removed.
type SweepFunc func() (int, error)

// Task is a named retention sweep.
type Task struct {
	Name  string
	Sweep SweepFunc
}

// Sweeper runs retention sweeps at startup and then on a fixed interval.
type Sweeper struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	tasks     []Task
}

// NewSweeper creates a stopped sweeper.
func NewSweeper(interval time.Duration, tasks ...Task) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", interval)
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Sweeper{scheduler: scheduler, interval: interval, tasks: tasks}, nil
}

// RunOnce runs every task now. Failures are logged and joined.
func (s *Sweeper) RunOnce() error {
	var errs []error
	for _, t := range s.tasks {
		if err := run(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start registers the interval jobs and starts the scheduler.
func (s *Sweeper) Start() error {
	for _, t := range s.tasks {
		t := t // per-iteration copy; go directive is 1.21 (pre-loopvar semantics)
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(s.interval),
			gocron.NewTask(func() { _ = run(t) }),
			gocron.WithName("sweep_"+t.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s sweep: %w", t.Name, err)
		}
	}
	s.scheduler.Start()
	log.Printf("[Sweeper] Started %d job(s), every %v", len(s.tasks), s.interval)
	return nil
}

// Stop shuts the scheduler down, waiting for running sweeps.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func run(t Task) error {
	n, err := t.Sweep()
	if err != nil {
		log.Printf("[Sweeper] %s sweep failed: %v", t.Name, err)
		return fmt.Errorf("%s sweep: %w", t.Name, err)
	}
	if n > 0 {
		log.Printf("[Sweeper] %s sweep removed %d item(s)", t.Name, n)
	}
	return nil
}
