package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SignatureHeader carries the hex HMAC-SHA512 of a webhook body.
const SignatureHeader = "x-paystack-signature"

const defaultBaseURL = "https://api.paystack.co"

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client talks to the Paystack REST API with the account secret key.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *logger.Logger
}

// NewClient validates the configuration and builds a client. A nil
// httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg config.PaystackConfig, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, secretKey: secret, http: httpClient, logger: logg}, nil
}

// InitializeParams mirrors POST /transaction/initialize. Amount is in the
// currency's minor unit.
type InitializeParams struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Transaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx answer or a status=false envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack api error (%d): %s", e.StatusCode, e.Message)
}

// InitializeTransaction starts a hosted checkout and returns its access code.
func (c *Client) InitializeTransaction(ctx context.Context, params InitializeParams) (*Transaction, error) {
	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"amount":   params.Amount,
		"currency": params.Currency,
		"email":    params.Email,
	})
	var tx Transaction
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", params, &tx); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, mapError(err, "initialize transaction")
	}
	c.log(ctx, "response", "initialize_transaction", map[string]any{"reference": tx.Reference})
	return &tx, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// VerifySignature checks the webhook signature header against body.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.secretKey, body, signature)
}

func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign produces the signature Paystack would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func mapError(err error, op string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack rejected credentials")
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "paystack "+op+" failed")
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		if strings.Contains(strings.ToLower(k), "email") {
			v = "[REDACTED]"
		}
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Error(ctx, "paystack "+op, errors.New(fmt.Sprint(fields["error"])))
		return
	}
	c.logger.Info(ctx, "paystack "+phase)
}
