package operations

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Well-known operation keys.
const (
	KeyLagosDeliveryFee      = "LAGOS_DELIVERY_FEE"
	KeyNationWideDeliveryFee = "NATION_WIDE_DELIVERY_FEE"
)

var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

// Service is the admin-managed key/value store for runtime settings.
type Service interface {
	Get(ctx context.Context, key string) (*models.Operation, error)
	Set(ctx context.Context, key, value string) (*models.Operation, error)
	List(ctx context.Context) ([]models.Operation, error)
}

// Invalidator drops cached copies of a key after it changes.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

type service struct {
	repo        *Repository
	invalidator Invalidator
}

func NewService(repo *Repository, invalidator Invalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("operations repository required")
	}
	return &service{repo: repo, invalidator: invalidator}, nil
}

// NormalizeKey upper-cases and trims a property name.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func (s *service) Get(ctx context.Context, key string) (*models.Operation, error) {
	key = NormalizeKey(key)
	op, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "operation not found").
				WithDetails(map[string]any{"key": key})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load operation")
	}
	return op, nil
}

func (s *service) Set(ctx context.Context, key, value string) (*models.Operation, error) {
	key = NormalizeKey(key)
	if !keyPattern.MatchString(key) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "key must be upper snake case").
			WithDetails(map[string]any{"field": "key"})
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required").
			WithDetails(map[string]any{"field": "value"})
	}
	op := &models.Operation{Property: key, Value: value}
	if err := s.repo.Upsert(ctx, op); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save operation")
	}
	if s.invalidator != nil {
		// A stale cache entry expires on its own TTL.
		_ = s.invalidator.Invalidate(ctx, key)
	}
	return s.Get(ctx, key)
}

func (s *service) List(ctx context.Context) ([]models.Operation, error) {
	ops, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list operations")
	}
	return ops, nil
}
