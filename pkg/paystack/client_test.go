package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestInitializeTransactionSendsBearerAndDecodes(t *testing.T) {
	var got InitializeParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Fatalf("unexpected authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref_1"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.PaystackConfig{SecretKey: "sk_test_123", BaseURL: srv.URL + "/"}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	tx, err := client.InitializeTransaction(context.Background(), InitializeParams{
		Email:    "ada@example.com",
		Amount:   450000,
		Currency: "NGN",
		Metadata: map[string]string{"orderReference": "order_1"},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if tx.AccessCode != "abc" || tx.Reference != "ref_1" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if got.Amount != 450000 || got.Metadata["orderReference"] != "order_1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestInitializeTransactionMapsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid email"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(config.PaystackConfig{SecretKey: "sk", BaseURL: srv.URL}, srv.Client(), nil)
	_, err := client.InitializeTransaction(context.Background(), InitializeParams{Email: "x", Amount: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestNewClientRequiresSecret(t *testing.T) {
	if _, err := NewClient(config.PaystackConfig{}, nil, nil); err == nil {
		t.Fatalf("expected error without secret key")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	sig := Sign("whsec", body)
	if !VerifySignature("whsec", body, sig) {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature("whsec", []byte(`{"event":"charge.failed"}`), sig) {
		t.Fatalf("tampered body must not verify")
	}
	if VerifySignature("other", body, sig) {
		t.Fatalf("wrong secret must not verify")
	}
	if VerifySignature("whsec", body, "") {
		t.Fatalf("empty signature must not verify")
	}
}

func TestInitializeTransactionHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	// The transport has no timeout of its own; only the caller's deadline applies.
	client, err := NewClient(config.PaystackConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, &http.Client{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err = client.InitializeTransaction(ctx, InitializeParams{Email: "ada@example.com", Amount: 1000})
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream code, got %v", err)
	}
	if time.Since(started) > 2*time.Second {
		t.Fatal("initialize outlived the caller deadline")
	}
}
