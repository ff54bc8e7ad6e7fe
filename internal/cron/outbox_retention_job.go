package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

const (
	outboxRetentionJobName = "outbox-retention"
	outboxRetentionDays    = 30
	outboxMinAttempts      = 5
	// Dead letters are kept this many times longer than published rows.
	dlqRetentionFactor = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// DLQ is optional. When set, dead letters older than
	// Retention*dlqRetentionFactor days are purged in the same transaction.
	DLQ       dlqRetentionRepo
	Metrics   *metrics.CronJobMetrics
	Retention int
	// Published rows that needed at least MinAttempts tries are kept.
	MinAttempts int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRetentionRepo
	dlq         dlqRetentionRepo
	metrics     *metrics.CronJobMetrics
	retention   time.Duration
	minAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = outboxRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		dlq:         params.DLQ,
		metrics:     params.Metrics,
		retention:   time.Duration(days) * 24 * time.Hour,
		minAttempts: minAttempts,
		now:         time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.retention * dlqRetentionFactor)

	var published, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(tx, cutoff, j.minAttempts)
		if err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		published = n
		if j.dlq == nil {
			return nil
		}
		if deadLetters, err = j.dlq.DeleteFailedBefore(tx, dlqCutoff); err != nil {
			return fmt.Errorf("dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.metrics.AddPurged(j.Name(), "outbox_events", published)
	j.metrics.AddPurged(j.Name(), "outbox_dlq", deadLetters)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"dlq_cutoff":       dlqCutoff,
		"min_attempts":     j.minAttempts,
		"published_purged": published,
		"dlq_purged":       deadLetters,
	}), "outbox retention cleanup complete")
	return nil
}
