package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubCart struct {
	cartsvc.Service
	owner   uuid.UUID
	added   []cartsvc.LineItemInput
	removed uuid.UUID
	err     error
}

func (s *stubCart) AddItem(ctx context.Context, ownerID uuid.UUID, item cartsvc.LineItemInput) (*cartsvc.ItemResult, error) {
	s.owner = ownerID
	s.added = append(s.added, item)
	if s.err != nil {
		return nil, s.err
	}
	return &cartsvc.ItemResult{Item: models.CartLineItem{ProductID: item.Product(), Quantity: item.Qty()}, Created: true}, nil
}

func (s *stubCart) AddItems(ctx context.Context, ownerID uuid.UUID, items []cartsvc.LineItemInput) (*cartsvc.BatchResult, error) {
	s.owner = ownerID
	s.added = append(s.added, items...)
	return &cartsvc.BatchResult{Added: len(items)}, nil
}

func (s *stubCart) RemoveItem(ctx context.Context, ownerID, itemID uuid.UUID) error {
	s.owner = ownerID
	s.removed = itemID
	return s.err
}

func asCustomer(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), types.Actor{UserID: userID, Role: enums.RoleCustomer}, "access"))
}

func TestCartAddItemParsesVariant(t *testing.T) {
	svc := &stubCart{}
	userID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	body := `{"productId":"` + productID.String() + `","variantId":"` + variantID.String() + `","quantity":2}`

	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, asCustomer(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), userID))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.owner != userID || len(svc.added) != 1 {
		t.Fatalf("unexpected call owner=%s items=%d", svc.owner, len(svc.added))
	}
	item, ok := svc.added[0].(cartsvc.VariantLineItem)
	if !ok || item.VariantID != variantID || item.Quantity != 2 {
		t.Fatalf("expected variant line item, got %#v", svc.added[0])
	}
}

func TestCartAddItemRequiresActor(t *testing.T) {
	resp := httptest.NewRecorder()
	CartAddItem(&stubCart{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemLockedCart(t *testing.T) {
	svc := &stubCart{err: pkgerrors.New(pkgerrors.CodeCartLocked, "cart is locked")}
	body := `{"productId":"` + uuid.NewString() + `","quantity":1}`

	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, asCustomer(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"number":2002`) {
		t.Fatalf("expected numeric code in body: %s", resp.Body.String())
	}
}

func TestCartAddItemsValidatesEachItem(t *testing.T) {
	svc := &stubCart{}
	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":1},{"productId":"` + uuid.NewString() + `","quantity":0}]}`

	resp := httptest.NewRecorder()
	CartAddItems(svc, nil).ServeHTTP(resp, asCustomer(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.added) != 0 {
		t.Fatalf("service must not run on invalid batch")
	}
}

func TestCartRemoveItem(t *testing.T) {
	svc := &stubCart{}
	itemID := uuid.New()
	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"itemId": itemID.String()})

	resp := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(resp, asCustomer(req, uuid.New()))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.removed != itemID {
		t.Fatalf("expected %s removed got %s", itemID, svc.removed)
	}
}

func withAdmin(ctx context.Context) context.Context {
	return middleware.WithActor(ctx, types.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, "admin-access")
}
