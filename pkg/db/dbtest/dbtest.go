// Package dbtest provides in-memory SQLite databases for repository and service tests.
package dbtest

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// New opens an isolated shared-cache in-memory database with every model migrated.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return open(t, "file:"+name+"_"+uuid.NewString()+"?mode=memory&cache=shared&_busy_timeout=5000")
}

// NewFile opens a WAL database file under t.TempDir for tests that race
// goroutines. Transactions begin IMMEDIATE so writers queue on the busy
// timeout instead of failing with a shared-cache table lock.
func NewFile(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "storefront.db")
	return open(t, "file:"+path+"?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate")
}

func open(t testing.TB, dsn string) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
