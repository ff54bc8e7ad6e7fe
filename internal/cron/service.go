package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	robcron "github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

const (
	defaultSchedule   = "@every 1h"
	defaultJobTimeout = 30 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Schedule is a five-field cron spec or a descriptor such as "@hourly"
	// or "@every 15m".
	Schedule string
	// JobTimeout bounds each job. Keep it at or below the lock TTL so a job
	// never runs on an expired lease.
	JobTimeout time.Duration
}

// Service runs every registered job once per tick while holding the lock.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	schedule   robcron.Schedule
	jobTimeout time.Duration
	clock      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	spec := params.Schedule
	if spec == "" {
		spec = defaultSchedule
	}
	schedule, err := robcron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", spec, err)
	}
	jobs := params.Registry
	if jobs == nil {
		jobs = NewRegistry()
	}
	timeout := params.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Service{
		logg:       params.Logger,
		jobs:       jobs,
		lock:       params.Lock,
		metrics:    params.Metrics,
		schedule:   schedule,
		jobTimeout: timeout,
		clock:      time.Now,
	}, nil
}

// Run executes a cycle right away and then on every tick of the schedule.
// It returns the context error once ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		s.tick(ctx)
		wait := time.NewTimer(time.Until(s.schedule.Next(s.clock())))
		select {
		case <-ctx.Done():
			wait.Stop()
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-wait.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "cron cycle failed", err)
	}
}

// runCycle runs every job once under the lock. A failing job does not stop
// the ones after it; all failures come back combined.
func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, cycle skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	started := s.clock()
	var errs error
	for _, job := range s.jobs.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(s.jobs.Jobs()),
		"failed":      len(multierr.Errors(errs)),
		"duration_ms": s.clock().Sub(started).Milliseconds(),
	}), "cron cycle complete")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	started := s.clock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.logg.Error(s.logg.WithField(jobCtx, "stack", string(debug.Stack())), "cron job panicked", err)
		}
		took := s.clock().Sub(started)
		s.metrics.ObserveRun(job.Name(), took, err)
		logCtx := s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
		if err != nil {
			s.logg.Error(logCtx, "cron job failed", err)
			return
		}
		s.logg.Info(logCtx, "cron job done")
	}()
	return job.Run(jobCtx)
}
