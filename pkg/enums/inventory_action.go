package enums

import "fmt"

// InventoryAction is the direction of a ledger movement.
type InventoryAction string

const (
	InventoryStockIn  InventoryAction = "stock_in"
	InventoryStockOut InventoryAction = "stock_out"
)

// IsValid reports whether the value is a known ledger action.
func (a InventoryAction) IsValid() bool {
	return a == InventoryStockIn || a == InventoryStockOut
}

// Sign returns +1 for stock_in and -1 for stock_out.
func (a InventoryAction) Sign() int64 {
	if a == InventoryStockOut {
		return -1
	}
	return 1
}

// ParseInventoryAction converts raw input into InventoryAction.
func ParseInventoryAction(value string) (InventoryAction, error) {
	action := InventoryAction(value)
	if !action.IsValid() {
		return "", fmt.Errorf("invalid inventory action %q", value)
	}
	return action, nil
}
