package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		number    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, number: 1001, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, number: 1002, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, number: 1003, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, number: 1004, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, number: 1005, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeEmptyCart, status: http.StatusBadRequest, number: 2001, publicMsg: "cart is empty"},
		{code: CodeCartLocked, status: http.StatusConflict, number: 2002, publicMsg: "cart is already locked", detailsOK: true},
		{code: CodeInvalidTransition, status: http.StatusConflict, number: 2201, publicMsg: "invalid status transition", detailsOK: true},
		{code: CodeInvalidPayload, status: http.StatusBadRequest, number: 2303, publicMsg: "invalid payload", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, number: 5000, publicMsg: "internal server error", retryable: true},
		{code: CodeUpstream, status: http.StatusBadGateway, number: 5002, publicMsg: "upstream service failed", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, number: 5003, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Number != tt.number {
			t.Fatalf("code %s expected number %d got %d", tt.code, tt.number, meta.Number)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataNumbersAreUnique(t *testing.T) {
	seen := map[int]Code{}
	for code, meta := range metadataByCode {
		if meta.Number == 0 {
			t.Fatalf("code %s has no numeric identifier", code)
		}
		if other, ok := seen[meta.Number]; ok {
			t.Fatalf("codes %s and %s share number %d", code, other, meta.Number)
		}
		seen[meta.Number] = code
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("create order: %w", New(CodeEmptyCart, "cart is empty"))
	if !IsCode(err, CodeEmptyCart) {
		t.Fatalf("expected wrapped EMPTY_CART to be detected")
	}
	if IsCode(err, CodeCartLocked) {
		t.Fatalf("unexpected CART_LOCKED match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}
