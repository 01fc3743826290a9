package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func seedCheckoutRows(t *testing.T, conn *gorm.DB) (*models.Cart, *models.Discount) {
	t.Helper()
	cart := &models.Cart{OwnerID: uuid.New()}
	if err := conn.Omit("Items").Create(cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	discount := &models.Discount{
		Name:       "Launch",
		Code:       "LAUNCH",
		Percentage: decimal.NewFromInt(10),
		UsageLimit: 5,
		Validity:   time.Now().Add(time.Hour),
		IsVisible:  true,
	}
	if err := conn.Create(discount).Error; err != nil {
		t.Fatalf("seed discount: %v", err)
	}
	return cart, discount
}

// redeemAndLock mimics the checkout writes that must land together.
func redeemAndLock(tx *gorm.DB, cart *models.Cart, discount *models.Discount) error {
	if err := tx.Model(&models.Discount{}).Where("id = ?", discount.ID).
		Update("uses", gorm.Expr("uses + 1")).Error; err != nil {
		return err
	}
	return tx.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Updates(map[string]any{"locked": true, "locked_at": time.Now().UTC()}).Error
}

func loadState(t *testing.T, conn *gorm.DB, cart *models.Cart, discount *models.Discount) (bool, int64) {
	t.Helper()
	var storedCart models.Cart
	if err := conn.Where("id = ?", cart.ID).Take(&storedCart).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	var storedDiscount models.Discount
	if err := conn.Where("id = ?", discount.ID).Take(&storedDiscount).Error; err != nil {
		t.Fatalf("reload discount: %v", err)
	}
	return storedCart.Locked, storedDiscount.Uses
}

func TestWithTxCommitsCheckoutWritesTogether(t *testing.T) {
	conn := dbtest.New(t)
	client := db.Wrap(conn)
	cart, discount := seedCheckoutRows(t, conn)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return redeemAndLock(tx, cart, discount)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	locked, uses := loadState(t, conn, cart, discount)
	if !locked || uses != 1 {
		t.Fatalf("expected locked cart and one use, got locked=%v uses=%d", locked, uses)
	}
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	conn := dbtest.New(t)
	client := db.Wrap(conn)
	cart, discount := seedCheckoutRows(t, conn)
	ctx := context.Background()

	errOrderInsert := errors.New("order insert failed")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := redeemAndLock(tx, cart, discount); err != nil {
			return err
		}
		return errOrderInsert
	})
	if !errors.Is(err, errOrderInsert) {
		t.Fatalf("expected the callback error back, got %v", err)
	}
	if locked, uses := loadState(t, conn, cart, discount); locked || uses != 0 {
		t.Fatalf("error should roll back, got locked=%v uses=%d", locked, uses)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to propagate")
			}
		}()
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			if err := redeemAndLock(tx, cart, discount); err != nil {
				return err
			}
			panic("sequence allocator blew up")
		})
	}()
	if locked, uses := loadState(t, conn, cart, discount); locked || uses != 0 {
		t.Fatalf("panic should roll back, got locked=%v uses=%d", locked, uses)
	}
}

func TestSecondOpenCartIsUniqueViolation(t *testing.T) {
	conn := dbtest.New(t)
	owner := uuid.New()
	if err := conn.Omit("Items").Create(&models.Cart{OwnerID: owner}).Error; err != nil {
		t.Fatalf("first cart: %v", err)
	}
	err := conn.Omit("Items").Create(&models.Cart{OwnerID: owner}).Error
	if !db.IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation for a second open cart, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client := db.Wrap(dbtest.New(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
