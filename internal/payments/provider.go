package payments

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/paystack"
)

// Provider starts a hosted payment for an order.
type Provider interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
}

type InitializeRequest struct {
	Amount   int64
	Email    string
	Currency string
	Metadata map[string]string
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

type paystackInitializer interface {
	InitializeTransaction(ctx context.Context, params paystack.InitializeParams) (*paystack.Transaction, error)
}

type paystackProvider struct {
	client paystackInitializer
}

// NewPaystackProvider adapts the Paystack client to Provider.
func NewPaystackProvider(client paystackInitializer) Provider {
	return &paystackProvider{client: client}
}

func (p *paystackProvider) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	tx, err := p.client.InitializeTransaction(ctx, paystack.InitializeParams{
		Email:    req.Email,
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &InitializeResult{
		AuthorizationURL: tx.AuthorizationURL,
		AccessCode:       tx.AccessCode,
		Reference:        tx.Reference,
	}, nil
}
