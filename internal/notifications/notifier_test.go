package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestNotifyWritesOutboxRow(t *testing.T) {
	conn := dbtest.New(t)
	repo := outbox.NewRepository(conn)
	n, err := NewNotifier(db.Wrap(conn), outbox.NewService(repo, nil), nil)
	require.NoError(t, err)

	err = n.Notify(context.Background(), Message{
		To:        "ada@example.com",
		Subject:   "Order confirmed",
		Template:  TemplateOrderConfirmation,
		Variables: map[string]any{"orderCode": "TSS260101000001"},
	})
	require.NoError(t, err)

	rows, err := repo.FetchPending(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventNotificationRequested, rows[0].EventType)
	assert.Equal(t, enums.AggregateNotification, rows[0].AggregateType)

	var msg Message
	_, err = outbox.DecodeEnvelope(rows[0].Payload.Data, &msg)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, TemplateOrderConfirmation, msg.Template)
	assert.Equal(t, "TSS260101000001", msg.Variables["orderCode"])
}

func TestNotifyRejectsMissingRecipient(t *testing.T) {
	conn := dbtest.New(t)
	n, err := NewNotifier(db.Wrap(conn), outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)

	err = n.Notify(context.Background(), Message{Template: TemplateOrderShipped})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("insert failed")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func TestNotifyWrapsEmitFailure(t *testing.T) {
	n, err := NewNotifier(passthroughTx{}, failingEmitter{}, nil)
	require.NoError(t, err)

	err = n.Notify(context.Background(), Message{To: "a@b.c", Template: TemplateOrderShipped})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

type recordingNotifier struct {
	err  error
	sent []Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingNotifier) NotifyTx(ctx context.Context, _ *gorm.DB, msg Message) error {
	return r.Notify(ctx, msg)
}

func TestSendSwallowsFailures(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("down")}
	Send(context.Background(), rec, nil, Message{To: "a@b.c", Template: TemplateOrderShipped})
	require.Len(t, rec.sent, 1)

	Send(context.Background(), nil, nil, Message{})
}
