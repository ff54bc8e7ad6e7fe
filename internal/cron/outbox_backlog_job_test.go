package cron

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

type fakeBacklogRepo struct {
	count       int64
	oldest      *time.Time
	err         error
	maxAttempts int
}

func (f *fakeBacklogRepo) Backlog(_ *gorm.DB, maxAttempts int) (int64, *time.Time, error) {
	f.maxAttempts = maxAttempts
	return f.count, f.oldest, f.err
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestOutboxBacklogJobReportsGauges(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	oldest := now.Add(-90 * time.Second)
	repo := &fakeBacklogRepo{count: 3, oldest: &oldest}
	reg := prometheus.NewRegistry()

	var buf bytes.Buffer
	jobIface, err := NewOutboxBacklogJob(OutboxBacklogJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: &buf}),
		Repository:  repo,
		Metrics:     metrics.NewOutboxMetrics(reg),
		MaxAttempts: 10,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*outboxBacklogJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repo.maxAttempts != 10 {
		t.Fatalf("max attempts not forwarded: %d", repo.maxAttempts)
	}
	if got := gaugeValue(t, reg, "product_service_outbox_backlog"); got != 3 {
		t.Fatalf("backlog gauge = %v", got)
	}
	if got := gaugeValue(t, reg, "product_service_outbox_oldest_pending_age_seconds"); got != 90 {
		t.Fatalf("age gauge = %v", got)
	}
	if strings.Contains(buf.String(), "stale") {
		t.Fatalf("fresh backlog should not warn: %s", buf.String())
	}
}

func TestOutboxBacklogJobWarnsWhenStale(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	oldest := now.Add(-time.Hour)
	var buf bytes.Buffer
	jobIface, err := NewOutboxBacklogJob(OutboxBacklogJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: &buf}),
		Repository:  &fakeBacklogRepo{count: 1, oldest: &oldest},
		MaxAttempts: 10,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*outboxBacklogJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "stale") {
		t.Fatalf("expected stale warning, got %s", buf.String())
	}
}

func TestOutboxBacklogJobErrors(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if _, err := NewOutboxBacklogJob(OutboxBacklogJobParams{Logger: logg, Repository: &fakeBacklogRepo{}}); err == nil {
		t.Fatal("expected max attempts error")
	}
	if _, err := NewOutboxBacklogJob(OutboxBacklogJobParams{Logger: logg, MaxAttempts: 1}); err == nil {
		t.Fatal("expected repository error")
	}
	job, _ := NewOutboxBacklogJob(OutboxBacklogJobParams{
		Logger:      logg,
		Repository:  &fakeBacklogRepo{err: errors.New("db gone")},
		MaxAttempts: 1,
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repository error to surface")
	}
}
