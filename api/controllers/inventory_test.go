package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubInventory struct {
	inventory.Service
	recorded inventory.MovementInput
	reversed map[uuid.UUID]bool
	filter   inventory.StockFilter
}

func (s *stubInventory) RecordMovement(ctx context.Context, input inventory.MovementInput) (*models.InventoryEntry, error) {
	s.recorded = input
	return &models.InventoryEntry{ID: uuid.New(), ProductID: input.ProductID, Action: input.Action, Quantity: input.Quantity, Active: true}, nil
}

func (s *stubInventory) Reverse(ctx context.Context, entryID, actorID uuid.UUID) (*models.InventoryEntry, error) {
	if s.reversed[entryID] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "entry already reversed")
	}
	s.reversed[entryID] = true
	return &models.InventoryEntry{ID: entryID}, nil
}

func (s *stubInventory) Overview(ctx context.Context, filter inventory.StockFilter, params pagination.Params) (*inventory.Overview, error) {
	s.filter = filter
	return &inventory.Overview{StatusFilter: string(filter)}, nil
}

func TestAdminInventoryRecordStampsActor(t *testing.T) {
	svc := &stubInventory{}
	productID := uuid.New()
	body := `{"productId":"` + productID.String() + `","action":"stock_in","quantity":12,"description":" restock "}`

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(withAdmin(req.Context()))
	resp := httptest.NewRecorder()
	AdminInventoryRecord(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.recorded.ProductID != productID || svc.recorded.Action != enums.InventoryStockIn || svc.recorded.Quantity != 12 {
		t.Fatalf("unexpected movement %+v", svc.recorded)
	}
	if svc.recorded.UserID == uuid.Nil || svc.recorded.Description != "restock" {
		t.Fatalf("expected actor and trimmed description, got %+v", svc.recorded)
	}
}

func TestAdminInventoryRecordRejectsUnknownAction(t *testing.T) {
	body := `{"productId":"` + uuid.NewString() + `","action":"shrink","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(withAdmin(req.Context()))
	resp := httptest.NewRecorder()
	AdminInventoryRecord(&stubInventory{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminInventoryReverseTwiceConflicts(t *testing.T) {
	svc := &stubInventory{reversed: map[uuid.UUID]bool{}}
	entryID := uuid.New()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": entryID.String()})
		req = req.WithContext(withAdmin(req.Context()))
		resp := httptest.NewRecorder()
		AdminInventoryReverse(svc, nil).ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusConflict {
		t.Fatalf("expected 200 then 409, got %v", codes)
	}
}

func TestAdminInventoryOverviewFilter(t *testing.T) {
	svc := &stubInventory{}
	resp := httptest.NewRecorder()
	AdminInventoryOverview(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?status=LOW", nil))
	if resp.Code != http.StatusOK || svc.filter != inventory.StockFilterLow {
		t.Fatalf("expected low filter, got %d %q", resp.Code, svc.filter)
	}

	resp = httptest.NewRecorder()
	AdminInventoryOverview(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?status=empty", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
