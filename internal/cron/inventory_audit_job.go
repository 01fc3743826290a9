package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const InventoryAuditJobName = "inventory_audit"

type stockAuditor interface {
	Audit(ctx context.Context) (*inventory.AuditReport, error)
}

// InventoryAuditJob compares cached stock counters against the ledger.
type InventoryAuditJob struct {
	logg    *logger.Logger
	auditor stockAuditor
}

func NewInventoryAuditJob(logg *logger.Logger, auditor stockAuditor) (*InventoryAuditJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("inventory auditor required")
	}
	return &InventoryAuditJob{logg: logg, auditor: auditor}, nil
}

func (j *InventoryAuditJob) Name() string { return InventoryAuditJobName }

func (j *InventoryAuditJob) Run(ctx context.Context) error {
	report, err := j.auditor.Audit(ctx)
	if report != nil {
		repaired := 0
		for _, d := range report.Drifts {
			if d.Repaired {
				repaired++
			}
		}
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"checked":  report.Checked,
			"drifted":  len(report.Drifts),
			"repaired": repaired,
		}), "inventory audit finished")
	}
	if err != nil {
		return fmt.Errorf("inventory audit: %w", err)
	}
	return nil
}
