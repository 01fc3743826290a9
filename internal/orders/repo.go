package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("order_code = ?", code).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

type listFilter struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
	Since      *time.Time
}

func (r *repository) List(ctx context.Context, filter listFilter, offset, limit int) ([]models.Order, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Order{})
		if filter.CustomerID != nil {
			q = q.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}
		if filter.Since != nil {
			q = q.Where("created_at >= ?", *filter.Since)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Order
	err := filtered().
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

// NextSequence atomically bumps and returns the counter for day. Inside a
// transaction the upserted row stays locked until commit.
func (r *repository) NextSequence(ctx context.Context, day string) (int64, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value": gorm.Expr("order_sequences.value + 1"),
		}),
	}).Create(&models.OrderSequence{Day: day, Value: 1}).Error
	if err != nil {
		return 0, err
	}
	var seq models.OrderSequence
	if err := r.db.WithContext(ctx).Where("day = ?", day).Take(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// UpdateIfStatus applies updates only while the order is still in from.
func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// StampPaymentMadeAt sets payment_made_at the first time only.
func (r *repository) StampPaymentMadeAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_made_at IS NULL", id).
		Update("payment_made_at", at).Error
}

func (r *repository) CountByStatusSince(ctx context.Context, since *time.Time) (map[enums.OrderStatus]int64, error) {
	type statusCount struct {
		Status enums.OrderStatus
		Count  int64
	}
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

type revenueRow struct {
	CreatedAt      time.Time
	TotalAmount    int64
	DiscountAmount int64
	ShippingCost   int64
}

func (r *repository) RevenueRowsSince(ctx context.Context, since time.Time) ([]revenueRow, error) {
	var rows []revenueRow
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("created_at, total_amount, discount_amount, shipping_cost").
		Where("created_at >= ? AND status <> ?", since, enums.OrderStatusCancelled).
		Order("created_at ASC").
		Scan(&rows).Error
	return rows, err
}
