package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	dispatcherConsumer = "notification-dispatcher"
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
)

type outboxRepository interface {
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	Park(ctx context.Context, id uuid.UUID) error
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type DispatcherParams struct {
	Repository  outboxRepository
	Mailer      Mailer
	Claims      claimer
	Logger      *logger.Logger
	Metrics     *metrics.CommerceMetrics
	BatchSize   int
	MaxAttempts int
}

// Dispatcher drains queued notification rows into a Mailer.
type Dispatcher struct {
	repo        outboxRepository
	mailer      Mailer
	claims      claimer
	logg        *logger.Logger
	metrics     *metrics.CommerceMetrics
	batchSize   int
	maxAttempts int
}

// BatchStats summarises one dispatch pass.
type BatchStats struct {
	Fetched   int
	Delivered int
	Failed    int
	Parked    int
	Skipped   int
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Mailer == nil {
		return nil, errors.New("mailer is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Dispatcher{
		repo:        params.Repository,
		mailer:      params.Mailer,
		claims:      params.Claims,
		logg:        params.Logger,
		metrics:     params.Metrics,
		batchSize:   batch,
		maxAttempts: maxAttempts,
	}, nil
}

// DispatchBatch delivers one batch of pending rows. Per-row bookkeeping
// failures are collected and returned together; delivery failures are not
// errors, they are recorded on the row.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (BatchStats, error) {
	var stats BatchStats
	rows, err := d.repo.FetchPending(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		return stats, fmt.Errorf("fetch pending notifications: %w", err)
	}
	stats.Fetched = len(rows)

	var errs error
	for _, row := range rows {
		if ctx.Err() != nil {
			return stats, multierr.Append(errs, ctx.Err())
		}
		errs = multierr.Append(errs, d.dispatch(ctx, row, &stats))
	}
	return stats, errs
}

func (d *Dispatcher) dispatch(ctx context.Context, row models.OutboxEvent, stats *BatchStats) error {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	}
	logCtx := d.logg.WithFields(ctx, fields)

	if row.EventType != enums.EventNotificationRequested {
		d.logg.Warn(logCtx, "parking unsupported outbox event")
		stats.Parked++
		return d.repo.Park(ctx, row.ID)
	}

	var msg Message
	if _, err := outbox.DecodeEnvelope(row.Payload.Data, &msg); err != nil {
		d.logg.Error(logCtx, "failed to decode notification payload", err)
		stats.Parked++
		return d.repo.Park(ctx, row.ID)
	}
	logCtx = d.logg.WithFields(logCtx, map[string]any{"template": msg.Template, "recipient": msg.To})

	if d.claims != nil {
		claimed, err := d.claims.Claim(ctx, dispatcherConsumer, row.ID)
		if err != nil {
			d.logg.Warn(logCtx, "notification claim unavailable, delivering without it")
		} else if !claimed {
			d.logg.Info(logCtx, "notification already delivered")
			stats.Skipped++
			return d.repo.MarkPublished(ctx, row.ID)
		}
	}

	if err := d.mailer.Send(ctx, msg.To, msg.Subject, msg.Template, msg.Variables); err != nil {
		return d.recordFailure(ctx, logCtx, row, msg, err, stats)
	}

	d.metrics.IncNotification(msg.Template, "delivered")
	stats.Delivered++
	d.logg.Info(logCtx, "notification delivered")
	return d.repo.MarkPublished(ctx, row.ID)
}

func (d *Dispatcher) recordFailure(ctx, logCtx context.Context, row models.OutboxEvent, msg Message, sendErr error, stats *BatchStats) error {
	d.metrics.IncNotification(msg.Template, "failed")
	stats.Failed++
	if d.claims != nil {
		if err := d.claims.Release(ctx, dispatcherConsumer, row.ID); err != nil {
			d.logg.Warn(logCtx, "failed to release notification claim")
		}
	}

	logCtx = d.logg.WithField(logCtx, "error", sendErr.Error())
	if err := d.repo.MarkFailed(ctx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	if row.AttemptCount+1 >= d.maxAttempts {
		d.logg.Warn(logCtx, "notification parked after max attempts")
		stats.Parked++
		d.metrics.IncNotification(msg.Template, "parked")
		if err := d.repo.Park(ctx, row.ID); err != nil {
			return fmt.Errorf("park %s: %w", row.ID, err)
		}
		return nil
	}
	d.logg.Warn(logCtx, "notification delivery failed")
	return nil
}
