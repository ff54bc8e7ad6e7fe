package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

const defaultBacklogWarnAge = 15 * time.Minute

type outboxBacklogRepo interface {
	Backlog(tx *gorm.DB, maxAttempts int) (int64, *time.Time, error)
}

type OutboxBacklogJobParams struct {
	Logger      *logger.Logger
	Repository  outboxBacklogRepo
	Metrics     *metrics.OutboxMetrics
	MaxAttempts int
	// WarnAge logs a warning when the oldest pending row is older than this.
	WarnAge time.Duration
}

// NewOutboxBacklogJob reports how many outbox rows still wait for delivery.
func NewOutboxBacklogJob(params OutboxBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	warnAge := params.WarnAge
	if warnAge <= 0 {
		warnAge = defaultBacklogWarnAge
	}
	return &outboxBacklogJob{
		logg:        params.Logger,
		repo:        params.Repository,
		metrics:     params.Metrics,
		maxAttempts: params.MaxAttempts,
		warnAge:     warnAge,
		now:         time.Now,
	}, nil
}

type outboxBacklogJob struct {
	logg        *logger.Logger
	repo        outboxBacklogRepo
	metrics     *metrics.OutboxMetrics
	maxAttempts int
	warnAge     time.Duration
	now         func() time.Time
}

func (j *outboxBacklogJob) Name() string { return "outbox-backlog" }

func (j *outboxBacklogJob) Run(ctx context.Context) error {
	count, oldest, err := j.repo.Backlog(nil, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("outbox backlog: %w", err)
	}
	now := j.now()
	j.metrics.SetBacklog(count, oldest, now)

	fields := map[string]any{"pending": count}
	if oldest != nil {
		age := now.Sub(*oldest)
		fields["oldest_age_s"] = int64(age.Seconds())
		if age > j.warnAge {
			j.logg.Warn(j.logg.WithFields(ctx, fields), "outbox backlog is stale; is the publisher running?")
			return nil
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox backlog reported")
	return nil
}
