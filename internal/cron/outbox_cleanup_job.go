package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	OutboxCleanupJobName   = "outbox_cleanup"
	defaultOutboxRetention = 7 * 24 * time.Hour
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxCleanupJobParams configure the delivered-notification purge.
type OutboxCleanupJobParams struct {
	Logger     *logger.Logger
	Repository outboxPurger
	Retention  time.Duration
}

// OutboxCleanupJob deletes delivered outbox rows older than the retention
// period. Undelivered and parked rows are kept for inspection.
type OutboxCleanupJob struct {
	logg      *logger.Logger
	repo      outboxPurger
	retention time.Duration
	now       func() time.Time
}

func NewOutboxCleanupJob(params OutboxCleanupJobParams) (*OutboxCleanupJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &OutboxCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *OutboxCleanupJob) Name() string { return OutboxCleanupJobName }

func (j *OutboxCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "outbox cleanup complete")
	return nil
}
