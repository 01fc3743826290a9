package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpCapturesStockConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23514",
		ConstraintName: "ck_products_stock_nonnegative",
		TableName:      "products",
		Message:        "new row violates check constraint",
	}
	err := Wrap(CodeDependency, fmt.Errorf("decrement stock: %w", pgErr), "reserve stock")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %q", d.Code)
	}
	if d.PGConstraint != "ck_products_stock_nonnegative" || d.PGTable != "products" {
		t.Fatalf("unexpected pg fields: %+v", d)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", d.Chain)
	}
}

func TestDumpReadsLibPQErrors(t *testing.T) {
	d := Dump(&pq.Error{Code: "23505", Constraint: "ux_discounts_code", Table: "discounts"})
	if d.PGCode != "23505" || d.PGConstraint != "ux_discounts_code" {
		t.Fatalf("unexpected pg fields: %+v", d)
	}
	if d.Code != "" {
		t.Fatalf("plain driver errors carry no code, got %q", d.Code)
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
