package catalog

import (
	"github.com/google/uuid"
)

// StockTarget addresses a product's own counter or one of its variants.
type StockTarget struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// StockChange reports the effect of one AdjustStock call.
type StockChange struct {
	Target           StockTarget
	Previous         int64
	Current          int64
	LowAlert         int64
	LowStockNotified bool
}

// CrossedIntoLow reports whether the change took stock from above the alert
// level to at or below it.
func (c StockChange) CrossedIntoLow() bool {
	return c.Previous > c.LowAlert && c.Current <= c.LowAlert
}

// RecoveredFromLow reports whether a raised alert should be re-armed because
// stock now sits above the alert level.
func (c StockChange) RecoveredFromLow() bool {
	return c.LowStockNotified && c.Current > c.LowAlert
}
