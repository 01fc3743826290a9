package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service is the append-only stock ledger. Every movement also adjusts the
// cached counter on the product or variant.
type Service interface {
	RecordMovement(ctx context.Context, input MovementInput) (*models.InventoryEntry, error)
	RecordMovementTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryEntry, error)
	Reverse(ctx context.Context, entryID, actorID uuid.UUID) (*models.InventoryEntry, error)
	CurrentStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int64, error)
	Get(ctx context.Context, entryID uuid.UUID) (*models.InventoryEntry, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductLedger, error)
	Overview(ctx context.Context, filter StockFilter, params pagination.Params) (*Overview, error)
	Audit(ctx context.Context) (*AuditReport, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockCounter interface {
	AdjustStock(ctx context.Context, tx *gorm.DB, target catalog.StockTarget, delta int64) (catalog.StockChange, error)
	SetStock(ctx context.Context, tx *gorm.DB, target catalog.StockTarget, stock int64) error
	SetLowStockNotified(ctx context.Context, tx *gorm.DB, target catalog.StockTarget, notified bool) (bool, error)
	ListAllProducts(ctx context.Context) ([]models.Product, error)
}

type ServiceParams struct {
	Repository  *Repository
	Catalog     stockCounter
	TxRunner    txRunner
	Notifier    notifications.Notifier
	Logger      *logger.Logger
	Metrics     *metrics.CommerceMetrics
	AdminEmail  string
	AuditRepair bool
}

type service struct {
	repo        *Repository
	catalog     stockCounter
	tx          txRunner
	notifier    notifications.Notifier
	logg        *logger.Logger
	metrics     *metrics.CommerceMetrics
	adminEmail  string
	auditRepair bool
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repository == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog stock counter required")
	}
	if p.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        p.Repository,
		catalog:     p.Catalog,
		tx:          p.TxRunner,
		notifier:    p.Notifier,
		logg:        p.Logger,
		metrics:     p.Metrics,
		adminEmail:  strings.TrimSpace(p.AdminEmail),
		auditRepair: p.AuditRepair,
	}, nil
}

func (s *service) RecordMovement(ctx context.Context, input MovementInput) (*models.InventoryEntry, error) {
	var entry *models.InventoryEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.RecordMovementTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecordMovementTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory movement requires a transaction")
	}
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	target := catalog.StockTarget{ProductID: input.ProductID, VariantID: input.VariantID}
	change, err := s.catalog.AdjustStock(ctx, tx, target, input.Action.Sign()*input.Quantity)
	if err != nil {
		return nil, err
	}

	entry := &models.InventoryEntry{
		ProductID:   input.ProductID,
		VariantID:   input.VariantID,
		OrderID:     input.OrderID,
		Action:      input.Action,
		Quantity:    input.Quantity,
		UserID:      input.UserID,
		Description: strings.TrimSpace(input.Description),
		Active:      true,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record inventory entry")
	}

	if err := s.evaluateLowStock(ctx, tx, change); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Reverse(ctx context.Context, entryID, actorID uuid.UUID) (*models.InventoryEntry, error) {
	var reversed *models.InventoryEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory entry")
		}
		ok, err := repo.Deactivate(ctx, entryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse inventory entry")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "inventory entry already reversed").
				WithDetails(map[string]any{"entryId": entryID})
		}

		target := catalog.StockTarget{ProductID: entry.ProductID, VariantID: entry.VariantID}
		change, err := s.catalog.AdjustStock(ctx, tx, target, -entry.SignedQuantity())
		if err != nil {
			return err
		}
		if err := s.evaluateLowStock(ctx, tx, change); err != nil {
			return err
		}
		entry.Active = false
		reversed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"entry_id": entryID.String(),
		"actor_id": actorID.String(),
	}), "inventory entry reversed")
	return reversed, nil
}

// evaluateLowStock raises the alert once per dip below the threshold and
// re-arms it when stock recovers.
func (s *service) evaluateLowStock(ctx context.Context, tx *gorm.DB, change catalog.StockChange) error {
	switch {
	case change.CrossedIntoLow() && !change.LowStockNotified:
		flipped, err := s.catalog.SetLowStockNotified(ctx, tx, change.Target, true)
		if err != nil {
			return err
		}
		if flipped {
			s.queueLowStockAlert(ctx, tx, change)
		}
	case change.RecoveredFromLow():
		if _, err := s.catalog.SetLowStockNotified(ctx, tx, change.Target, false); err != nil {
			return err
		}
	}
	return nil
}

// queueLowStockAlert writes the alert inside a savepoint so a failed insert
// leaves the surrounding movement intact.
func (s *service) queueLowStockAlert(ctx context.Context, tx *gorm.DB, change catalog.StockChange) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id": change.Target.ProductID.String(),
		"stock":      change.Current,
		"low_alert":  change.LowAlert,
	})
	s.logg.Warn(logCtx, "stock fell to low alert level")
	if s.notifier == nil || s.adminEmail == "" {
		return
	}

	title, err := s.repo.WithTx(tx).TargetLabel(ctx, change.Target.ProductID, change.Target.VariantID)
	if err != nil {
		s.logg.Error(logCtx, "failed to resolve low stock label", err)
		return
	}
	aggregate, aggregateID := enums.AggregateProduct, change.Target.ProductID
	if change.Target.VariantID != nil {
		aggregate, aggregateID = enums.AggregateVariant, *change.Target.VariantID
	}
	msg := notifications.Message{
		To:       s.adminEmail,
		Subject:  "Low stock: " + title,
		Template: notifications.TemplateLowStock,
		Variables: map[string]any{
			"title":    title,
			"stock":    change.Current,
			"lowAlert": change.LowAlert,
		},
		AggregateType: aggregate,
		AggregateID:   aggregateID,
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return s.notifier.NotifyTx(ctx, sp, msg)
	})
	if err != nil {
		s.logg.Error(logCtx, "failed to queue low stock alert", err)
	}
}

func (s *service) CurrentStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int64, error) {
	total, err := s.repo.SumActive(ctx, productID, variantID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum inventory")
	}
	return total, nil
}

func (s *service) Get(ctx context.Context, entryID uuid.UUID) (*models.InventoryEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory entry")
	}
	return entry, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductLedger, error) {
	params = params.Normalize()
	amount, err := s.repo.SumActiveForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum inventory")
	}
	rows, total, err := s.repo.ListActiveByProduct(ctx, productID, params.Offset(), params.Limit())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	dtos := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewEntryDTO(row))
	}
	return &ProductLedger{
		AmountInStock: amount,
		Entries:       pagination.NewPage(params, total, dtos),
	}, nil
}

func (s *service) Overview(ctx context.Context, filter StockFilter, params pagination.Params) (*Overview, error) {
	if filter == "" {
		filter = StockFilterAll
	}
	if !filter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "statusFilter must be all, low or stocked").
			WithDetails(map[string]any{"field": "statusFilter"})
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListProductsByStock(ctx, filter, params.Offset(), params.Limit())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock overview")
	}
	low, err := s.repo.CountProductsByStock(ctx, StockFilterLow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count low stock")
	}
	stocked, err := s.repo.CountProductsByStock(ctx, StockFilterStocked)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stocked")
	}

	items := make([]StockItem, 0, len(rows))
	for _, p := range rows {
		items = append(items, StockItem{
			ProductID:   p.ID,
			Name:        p.Name,
			Stock:       p.Stock,
			LowAlert:    p.LowAlert,
			HasVariants: p.HasVariants,
			Low:         p.Stock <= p.LowAlert,
		})
	}
	page := pagination.NewPage(params, total, items)
	return &Overview{
		Page:          page.Page,
		PerPage:       page.PerPage,
		TotalPages:    page.TotalPages,
		Total:         page.Total,
		StatusFilter:  string(filter),
		LowStockItems: low,
		StockedItems:  stocked,
		Data:          page.Data,
	}, nil
}

type auditTarget struct {
	variantID *uuid.UUID
	cached    int64
}

// Audit compares every cached counter with the ledger. When repair is
// enabled drifted counters are rewritten to the ledger value, floored at zero.
func (s *service) Audit(ctx context.Context) (*AuditReport, error) {
	products, err := s.catalog.ListAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{Drifts: []Drift{}}
	var errs error
	for _, product := range products {
		targets := []auditTarget{{cached: product.Stock}}
		for i := range product.Variants {
			id := product.Variants[i].ID
			targets = append(targets, auditTarget{variantID: &id, cached: product.Variants[i].Stock})
		}

		for _, t := range targets {
			report.Checked++
			ledger, err := s.repo.SumActive(ctx, product.ID, t.variantID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("sum %s: %w", product.ID, err))
				continue
			}
			expected := ledger
			if expected < 0 {
				expected = 0
			}
			if expected == t.cached {
				continue
			}
			drift := Drift{ProductID: product.ID, VariantID: t.variantID, Cached: t.cached, Ledger: ledger}
			if s.auditRepair {
				target := catalog.StockTarget{ProductID: product.ID, VariantID: t.variantID}
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.catalog.SetStock(ctx, tx, target, expected)
				})
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("repair %s: %w", product.ID, err))
				} else {
					drift.Repaired = true
				}
			}
			report.Drifts = append(report.Drifts, drift)
		}
	}

	s.metrics.AddStockDrift(len(report.Drifts))
	if len(report.Drifts) > 0 {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"checked": report.Checked,
			"drifted": len(report.Drifts),
			"repair":  s.auditRepair,
		}), "inventory drift detected")
	}
	return report, errs
}

func validateMovement(input MovementInput) error {
	fields := []string{}
	if input.ProductID == uuid.Nil {
		fields = append(fields, "productId")
	}
	if !input.Action.IsValid() {
		fields = append(fields, "action")
	}
	if input.Quantity <= 0 {
		fields = append(fields, "quantity")
	}
	if input.UserID == uuid.Nil {
		fields = append(fields, "userId")
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory movement").
			WithDetails(map[string]any{"fields": fields})
	}
	return nil
}
