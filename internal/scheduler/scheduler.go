// Package scheduler runs the periodic cycle jobs: sweeping overdue
// contributions into defaults, advancing closed periods and releasing payouts
// whose quorum is met. Every job acts as engine.SchedulerActor and tolerates
// the normal "not yet" conflicts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aminofabian/ichama-sub002/internal/config"
	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/models"
)

// Scheduler owns the cron runner for the cycle jobs.
type Scheduler struct {
	engine  *engine.Engine
	cron    *cron.Cron
	timeout time.Duration
}

// New registers a job for every non-empty spec in cfg. Runs of the same job
// never overlap.
func New(e *engine.Engine, cfg config.SchedulerConfig) (*Scheduler, error) {
	s := &Scheduler{
		engine:  e,
		timeout: 5 * time.Minute,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{}),
			cron.SkipIfStillRunning(cronLogger{}),
		)),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"sweep", cfg.Sweep, s.Sweep},
		{"advance", cfg.Advance, s.Advance},
		{"release", cfg.Release, s.Release},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("scheduler: %s job: %w", job.name, err)
		}
		slog.Info("Scheduled job", "job", job.name, "spec", job.spec)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(name string, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		slog.Error("Scheduled job failed", "job", name, "error", err)
		return
	}
	slog.Debug("Scheduled job done", "job", name, "duration_ms", time.Since(start).Milliseconds())
}

// Sweep records defaults for overdue contributions of every active cycle.
func (s *Scheduler) Sweep(ctx context.Context) error {
	cycles, err := s.engine.Cycles.ActiveCycles(ctx)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		created, err := s.engine.Defaults.SweepDefaults(ctx, engine.SchedulerActor, c.ID, time.Time{})
		if err != nil {
			if skippable(err) {
				continue
			}
			slog.Warn("Sweep failed", "cycle_id", c.ID, "error", err)
			continue
		}
		if len(created) > 0 {
			slog.Info("Sweep recorded defaults", "cycle_id", c.ID, "defaults", len(created))
		}
	}
	return nil
}

// Advance moves every active cycle whose period has closed to its next
// period.
func (s *Scheduler) Advance(ctx context.Context) error {
	cycles, err := s.engine.Cycles.ActiveCycles(ctx)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		next, err := s.engine.Cycles.AdvancePeriod(ctx, engine.SchedulerActor, c.ID)
		if err != nil {
			if skippable(err) {
				continue
			}
			slog.Warn("Advance failed", "cycle_id", c.ID, "error", err)
			continue
		}
		slog.Info("Cycle advanced", "cycle_id", next.ID, "period", next.PeriodNumber, "status", next.Status)
	}
	return nil
}

// Release pays out every pending payout whose quorum is met. Completed
// cycles are included since their last payout turns pending on completion.
func (s *Scheduler) Release(ctx context.Context) error {
	cycles, err := s.engine.Cycles.CyclesByStatus(ctx, models.CycleActive, models.CycleCompleted)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		pending, err := s.engine.Payouts.PendingPayouts(ctx, c.ID)
		if err != nil {
			slog.Warn("Listing pending payouts failed", "cycle_id", c.ID, "error", err)
			continue
		}
		for _, p := range pending {
			if _, err := s.engine.Payouts.ReleasePayout(ctx, engine.SchedulerActor, p.ID); err != nil {
				if skippable(err) {
					slog.Debug("Payout not releasable yet", "payout_id", p.ID, "error", err)
					continue
				}
				slog.Warn("Release failed", "payout_id", p.ID, "error", err)
			}
		}
	}
	return nil
}

// skippable reports conflicts that only mean the work is not due yet, such
// as engine.ErrPeriodNotClosed or engine.ErrQuorumNotMet.
func skippable(err error) bool {
	return errors.Is(err, engine.ErrStateConflict)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
