package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsCarryCheckoutConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_carts.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_open_owner ON carts (owner_id) WHERE locked = false",
			"ux_cart_line_items_identity ON cart_line_items (cart_id, product_id, variant_key)",
			"CHECK (quantity > 0)",
		},
		"*_create_discounts.sql": {
			"CHECK (uses >= 0 AND uses <= usage_limit)",
		},
		"*_create_orders.sql": {
			"ux_orders_order_code ON orders (order_code)",
			"ux_orders_cart ON orders (cart_id)",
			"cart_final_state jsonb NOT NULL",
		},
		"*_create_inventory_entries.sql": {
			"CHECK (action IN ('stock_in', 'stock_out'))",
			"CHECK (quantity > 0)",
		},
		"*_create_catalog.sql": {
			"stock bigint NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		},
		"*_create_external_payments_and_outbox.sql": {
			"ux_external_payments_order_reference ON external_payments (order_id, reference)",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected exactly one migration for %s, got %d", pattern, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, want := range checks {
			if !strings.Contains(content, want) {
				t.Fatalf("%s missing %q", matches[0], want)
			}
		}
	}
}

func TestEmbeddedSchemaMatchesDirectory(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Schema(), "*.sql")
	if err != nil {
		t.Fatalf("embedded glob: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded %d migrations, directory has %d", len(embedded), len(onDisk))
	}
	for i, path := range onDisk {
		if filepath.Base(path) != embedded[i] {
			t.Fatalf("embedded[%d] = %s, want %s", i, embedded[i], filepath.Base(path))
		}
	}
}

func TestCreateSQLMigrationPassesValidation(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "  Add Order Tracking-Number! ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_tracking_number.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration fails validation: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected a name without usable characters to fail")
	}
}
