package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/metrics"
)

// CycleFunc is one scheduled unit of work.
type CycleFunc func(ctx context.Context) error

// Scheduler drives the poll cycle and the reconciliation sweep from one
// authoritative ticker each. A tick that fires while the previous cycle is
// still running is skipped, so cycles for a cadence never overlap.
type Scheduler struct {
	poll          CycleFunc
	pollInterval  time.Duration
	sweep         CycleFunc
	sweepInterval time.Duration
	metrics       *metrics.Metrics
	logger        logger.Logger
}

// NewScheduler creates a scheduler for the two cadences.
func NewScheduler(poll CycleFunc, pollInterval time.Duration, sweep CycleFunc, sweepInterval time.Duration, m *metrics.Metrics, log logger.Logger) *Scheduler {
	return &Scheduler{
		poll:          poll,
		pollInterval:  pollInterval,
		sweep:         sweep,
		sweepInterval: sweepInterval,
		metrics:       m,
		logger:        log,
	}
}

// Run blocks until ctx is cancelled, driving both cadences.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runLoop(ctx, "poll", s.pollInterval, s.poll)
	}()
	go func() {
		defer wg.Done()
		s.runLoop(ctx, "sweep", s.sweepInterval, s.sweep)
	}()
	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, fn CycleFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var busy atomic.Bool
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler loop stopped", "cycle", name)
			return
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				s.metrics.TicksSkipped.WithLabelValues(name).Inc()
				s.logger.Warn("Skipping tick, previous cycle still running", "cycle", name)
				continue
			}
			go func() {
				defer busy.Store(false)
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("Cycle failed", "cycle", name, "error", err)
				}
			}()
		}
	}
}
