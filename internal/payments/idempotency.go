package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// CallbackGuard is the fast-path duplicate filter for provider callbacks.
// The external_payments unique index remains authoritative.
type CallbackGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewCallbackGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*CallbackGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &CallbackGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether key was already seen, marking it otherwise.
func (g *CallbackGuard) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("callback key is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, key), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *CallbackGuard) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("callback key is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, key))
}
