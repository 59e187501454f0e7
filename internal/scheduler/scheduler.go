// Package scheduler wires up the cron job that periodically sweeps for
// certificates entering their expiry warning window.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper publishes expiry notifications and reports how many were sent.
type Sweeper interface {
	SweepExpiring(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and manages the sweep loop.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string // cron spec, e.g. "@every 24h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(sweeper Sweeper, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		sweeper: sweeper,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so holders are notified without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	go s.runSweep(ctx)

	return nil
}

// Every registers fn to run at a fixed interval alongside the sweep.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %s", name, interval)
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), fn); err != nil {
		return fmt.Errorf("cron.AddFunc %s: %w", name, err)
	}
	return nil
}

// Stop shuts down the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	n, err := s.sweeper.SweepExpiring(ctx)
	if err != nil {
		log.Printf("[scheduler] Expiry sweep error: %v", err)
		return
	}
	log.Printf("[scheduler] Expiry sweep complete, %d notification(s) published", n)
}
