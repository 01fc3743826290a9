package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier queues notifications for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	NotifyTx(ctx context.Context, tx *gorm.DB, msg Message) error
}

type notifier struct {
	tx      txRunner
	outbox  emitter
	metrics *metrics.CommerceMetrics
}

// NewNotifier builds an outbox-backed notifier.
func NewNotifier(tx txRunner, outbox emitter, m *metrics.CommerceMetrics) (Notifier, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &notifier{tx: tx, outbox: outbox, metrics: m}, nil
}

func (n *notifier) Notify(ctx context.Context, msg Message) error {
	return n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return n.NotifyTx(ctx, tx, msg)
	})
}

func (n *notifier) NotifyTx(ctx context.Context, tx *gorm.DB, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	aggregateType := msg.AggregateType
	if aggregateType == "" {
		aggregateType = enums.AggregateNotification
	}
	aggregateID := msg.AggregateID
	if aggregateID == uuid.Nil {
		aggregateID = uuid.New()
	}
	err := n.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          msg,
	})
	if err != nil {
		n.metrics.IncNotification(msg.Template, "enqueue_failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification")
	}
	n.metrics.IncNotification(msg.Template, "queued")
	return nil
}

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient is required")
	}
	if strings.TrimSpace(msg.Template) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification template is required")
	}
	return nil
}

// Send queues msg and logs instead of returning a failure. Core operations
// use it so a notification problem never fails the business action.
func Send(ctx context.Context, n Notifier, logg *logger.Logger, msg Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil && logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"template":  msg.Template,
			"recipient": msg.To,
		})
		logg.Error(logCtx, "failed to queue notification", err)
	}
}
