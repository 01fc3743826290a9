package shipping

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeOps struct {
	values map[string]string
	reads  int
}

func (f *fakeOps) Get(_ context.Context, key string) (*models.Operation, error) {
	f.reads++
	value, ok := f.values[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "operation not found")
	}
	return &models.Operation{Property: key, Value: value}, nil
}

type fakeCache struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	value, ok := c.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	c.data[key] = value.(string)
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *fakeCache) CacheKey(scope, id string) string { return scope + ":" + id }

func TestQuoteSelectsRegionalFee(t *testing.T) {
	ops := &fakeOps{values: map[string]string{
		operations.KeyLagosDeliveryFee:      "250000",
		operations.KeyNationWideDeliveryFee: "500000",
	}}
	svc, err := NewService(Params{Operations: ops, LocalRegion: "Lagos"})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	local, err := svc.Quote(context.Background(), " lagos ")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if local.Fee != 250000 || local.Key != operations.KeyLagosDeliveryFee {
		t.Fatalf("unexpected local quote %+v", local)
	}

	remote, err := svc.Quote(context.Background(), "Kano")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if remote.Fee != 500000 {
		t.Fatalf("expected nationwide fee, got %d", remote.Fee)
	}
}

func TestQuoteMissingKeyIsDependencyError(t *testing.T) {
	svc, _ := NewService(Params{Operations: &fakeOps{values: map[string]string{}}})
	_, err := svc.Quote(context.Background(), "Lagos")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}

	svc, _ = NewService(Params{Operations: &fakeOps{values: map[string]string{
		operations.KeyLagosDeliveryFee: "abc",
	}}})
	_, err = svc.Quote(context.Background(), "Lagos")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR for malformed fee, got %v", err)
	}
}

func TestQuoteReadsThroughCache(t *testing.T) {
	ops := &fakeOps{values: map[string]string{operations.KeyLagosDeliveryFee: "250000"}}
	cache := newFakeCache()
	svc, _ := NewService(Params{Operations: ops, Cache: cache, TTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Quote(ctx, "Lagos"); err != nil {
			t.Fatalf("quote: %v", err)
		}
	}
	if ops.reads != 1 {
		t.Fatalf("expected a single table read, got %d", ops.reads)
	}
	if cache.ttls["operation:"+operations.KeyLagosDeliveryFee] != time.Minute {
		t.Fatalf("expected ttl to be applied")
	}

	ops.values[operations.KeyLagosDeliveryFee] = "300000"
	if err := svc.Invalidate(ctx, "lagos_delivery_fee"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	quote, err := svc.Quote(ctx, "Lagos")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fee != 300000 {
		t.Fatalf("expected refreshed fee, got %d", quote.Fee)
	}
}

func TestNewServiceRequiresOperations(t *testing.T) {
	if _, err := NewService(Params{}); err == nil {
		t.Fatalf("expected error")
	}
}
