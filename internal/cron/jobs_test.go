package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type fakeAuditor struct {
	report *inventory.AuditReport
	err    error
	calls  int
}

func (f *fakeAuditor) Audit(context.Context) (*inventory.AuditReport, error) {
	f.calls++
	return f.report, f.err
}

func TestInventoryAuditJobReportsDrift(t *testing.T) {
	auditor := &fakeAuditor{report: &inventory.AuditReport{
		Checked: 3,
		Drifts:  []inventory.Drift{{ProductID: uuid.New(), Cached: 4, Ledger: 2, Repaired: true}},
	}}
	job, err := NewInventoryAuditJob(testLogger(), auditor)
	require.NoError(t, err)

	assert.Equal(t, InventoryAuditJobName, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, auditor.calls)
}

func TestInventoryAuditJobPropagatesPartialFailure(t *testing.T) {
	auditor := &fakeAuditor{report: &inventory.AuditReport{Checked: 1}, err: errors.New("sum failed")}
	job, err := NewInventoryAuditJob(testLogger(), auditor)
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}

func TestOutboxCleanupJobDeletesOnlyOldDeliveredRows(t *testing.T) {
	conn := dbtest.New(t)
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	seed := func(publishedAt *time.Time) uuid.UUID {
		event := &models.OutboxEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       dbtypes.JSON[json.RawMessage]{Data: json.RawMessage(`{}`)},
			PublishedAt:   publishedAt,
		}
		require.NoError(t, conn.Create(event).Error)
		return event.ID
	}
	oldDelivered := seed(&old)
	recentDelivered := seed(&recent)
	pending := seed(nil)

	job, err := NewOutboxCleanupJob(OutboxCleanupJobParams{
		Logger:     testLogger(),
		Repository: outbox.NewRepository(conn),
		Retention:  7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var remaining []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{recentDelivered, pending}, remaining)
	assert.NotContains(t, remaining, oldDelivered)
}
