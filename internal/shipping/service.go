// Package shipping prices delivery from the admin-managed fee table.
package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const cacheScope = "operation"

type operationReader interface {
	Get(ctx context.Context, key string) (*models.Operation, error)
}

// Quote is the resolved delivery fee for a region.
type Quote struct {
	Region string `json:"region"`
	Key    string `json:"key"`
	Fee    int64  `json:"fee"`
}

// Service resolves delivery fees and invalidates cached fee values.
type Service struct {
	ops         operationReader
	cache       redis.Cache
	ttl         time.Duration
	localRegion string
	logg        *logger.Logger
}

type Params struct {
	Operations  operationReader
	Cache       redis.Cache
	TTL         time.Duration
	LocalRegion string
	Logger      *logger.Logger
}

func NewService(p Params) (*Service, error) {
	if p.Operations == nil {
		return nil, fmt.Errorf("operations reader required")
	}
	region := strings.TrimSpace(p.LocalRegion)
	if region == "" {
		region = "Lagos"
	}
	return &Service{
		ops:         p.Operations,
		cache:       p.Cache,
		ttl:         p.TTL,
		localRegion: region,
		logg:        p.Logger,
	}, nil
}

// KeyForRegion picks the fee key: the local region ships at the local rate,
// everywhere else at the nationwide rate.
func (s *Service) KeyForRegion(region string) string {
	if strings.EqualFold(strings.TrimSpace(region), s.localRegion) {
		return operations.KeyLagosDeliveryFee
	}
	return operations.KeyNationWideDeliveryFee
}

func (s *Service) Quote(ctx context.Context, region string) (*Quote, error) {
	key := s.KeyForRegion(region)
	raw, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	fee, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || fee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery fee is misconfigured").
			WithDetails(map[string]any{"key": key})
	}
	return &Quote{Region: region, Key: key, Fee: fee}, nil
}

func (s *Service) lookup(ctx context.Context, key string) (string, error) {
	cacheKey := ""
	if s.cache != nil {
		cacheKey = s.cache.CacheKey(cacheScope, key)
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			return cached, nil
		case !redis.IsNil(err) && s.logg != nil:
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "shipping cache read failed")
		}
	}

	op, err := s.ops.Get(ctx, key)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "delivery fee is not configured").
				WithDetails(map[string]any{"key": key})
		}
		return "", err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, cacheKey, op.Value, s.ttl); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "shipping cache write failed")
		}
	}
	return op.Value, nil
}

// Invalidate drops the cached value so the next quote reads the table.
func (s *Service) Invalidate(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, s.cache.CacheKey(cacheScope, operations.NormalizeKey(key)))
}
