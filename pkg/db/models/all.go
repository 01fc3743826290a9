package models

// All lists every persisted model, in dependency order, for AutoMigrate in
// SQLite-backed development and tests.
func All() []any {
	return []any{
		&User{},
		&Operation{},
		&Address{},
		&Product{},
		&ProductVariant{},
		&Discount{},
		&Cart{},
		&CartLineItem{},
		&OrderSequence{},
		&Order{},
		&InventoryEntry{},
		&ExternalPayment{},
		&OutboxEvent{},
	}
}
