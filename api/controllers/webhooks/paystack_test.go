package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/paystack"
)

const testSecret = "sk_test_secret"

type stubCallbacks struct {
	calls   int
	payload string
	err     error
}

func (s *stubCallbacks) HandleProviderCallback(ctx context.Context, payload []byte) (*payments.CallbackResult, error) {
	s.calls++
	s.payload = string(payload)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CallbackResult{Event: "charge.success", Outcome: payments.OutcomeProcessed}, nil
}

func signedRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	return req
}

func TestPaystackWebhookAcceptsSignedPayload(t *testing.T) {
	svc := &stubCallbacks{}
	body := `{"event":"charge.success","data":{"reference":"ref-1"}}`

	resp := httptest.NewRecorder()
	PaystackWebhook(svc, testSecret, nil).ServeHTTP(resp, signedRequest(body, paystack.Sign(testSecret, []byte(body))))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 || svc.payload != body {
		t.Fatalf("expected raw payload forwarded once, got %d %q", svc.calls, svc.payload)
	}
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	cases := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", paystack.Sign("other", []byte(`{}`))},
		{"garbage", "deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCallbacks{}
			resp := httptest.NewRecorder()
			PaystackWebhook(svc, testSecret, nil).ServeHTTP(resp, signedRequest(`{}`, tc.signature))
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", resp.Code)
			}
			if svc.calls != 0 {
				t.Fatalf("service must not run on unsigned payloads")
			}
		})
	}
}

func TestPaystackWebhookSurfacesInvalidPayload(t *testing.T) {
	svc := &stubCallbacks{err: pkgerrors.New(pkgerrors.CodeInvalidPayload, "missing order reference")}
	body := `{"event":"charge.success","data":{}}`

	resp := httptest.NewRecorder()
	PaystackWebhook(svc, testSecret, nil).ServeHTTP(resp, signedRequest(body, paystack.Sign(testSecret, []byte(body))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
