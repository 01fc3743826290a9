package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Address, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error)
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error)
	SetDefault(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error)
}

// CreateInput is the validated address payload.
type CreateInput struct {
	Name        string  `json:"name" validate:"required"`
	PhoneNumber string  `json:"phoneNumber" validate:"required"`
	Line1       string  `json:"line1" validate:"required"`
	Line2       *string `json:"line2,omitempty"`
	City        string  `json:"city" validate:"required"`
	Region      string  `json:"region" validate:"required"`
	Country     string  `json:"country" validate:"required"`
	Zip         *string `json:"zip,omitempty"`
	IsDefault   bool    `json:"isDefault"`
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Address, error) {
	addr := &models.Address{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(input.Name),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Line1:       strings.TrimSpace(input.Line1),
		Line2:       trimmedPtr(input.Line2),
		City:        strings.TrimSpace(input.City),
		Region:      strings.TrimSpace(input.Region),
		Country:     strings.TrimSpace(input.Country),
		Zip:         trimmedPtr(input.Zip),
	}
	if missing := missingFields(addr); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"fields": missing})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountForOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		// The first address always becomes the default.
		addr.IsDefault = input.IsDefault || count == 0
		if addr.IsDefault {
			if err := repo.ClearDefault(ctx, ownerID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, addr)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return addr, nil
}

func (s *service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	rows, err := s.repo.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

func (s *service) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another customer")
	}
	return addr, nil
}

func (s *service) SetDefault(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error) {
	addr, err := s.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, ownerID); err != nil {
			return err
		}
		return repo.MarkDefault(ctx, id)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
	}
	addr.IsDefault = true
	return addr, nil
}

func missingFields(addr *models.Address) []string {
	missing := []string{}
	check := map[string]string{
		"name":        addr.Name,
		"phoneNumber": addr.PhoneNumber,
		"line1":       addr.Line1,
		"city":        addr.City,
		"region":      addr.Region,
		"country":     addr.Country,
	}
	for _, field := range []string{"name", "phoneNumber", "line1", "city", "region", "country"} {
		if check[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
