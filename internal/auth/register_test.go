package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newRegisterService(t *testing.T) (RegisterService, *users.Repository) {
	t.Helper()
	conn := dbtest.New(t)
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:       gormTxRunner{db: conn},
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc, users.NewRepository(conn)
}

func TestRegisterCreatesCustomer(t *testing.T) {
	svc, repo := newRegisterService(t)
	phone := " 0803 "

	created, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Okafor",
		Email:     "  Jamie@Example.com",
		Password:  "Secret123!",
		Phone:     &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "jamie@example.com", created.Email)
	assert.Equal(t, enums.RoleCustomer, created.Role)
	require.NotNil(t, created.Phone)
	assert.Equal(t, "0803", *created.Phone)

	stored, err := repo.FindByEmail(context.Background(), "jamie@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("Secret123!", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newRegisterService(t)
	req := RegisterRequest{FirstName: "A", LastName: "B", Email: "dup@example.com", Password: "Secret123!"}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Email = "DUP@example.com"
	_, err = svc.Register(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newRegisterService(t)

	cases := map[string]RegisterRequest{
		"missing email":  {FirstName: "A", LastName: "B", Password: "Secret123!"},
		"short password": {FirstName: "A", LastName: "B", Email: "a@example.com", Password: "short"},
		"missing name":   {LastName: "B", Email: "a@example.com", Password: "Secret123!"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), req)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestRegisterAdminAssignsAdminRole(t *testing.T) {
	svc, _ := newRegisterService(t)

	created, err := svc.RegisterAdmin(context.Background(), AdminRegisterRequest{
		FirstName: "Ops",
		LastName:  "Lead",
		Email:     "ops@example.com",
		Password:  "Secret123!",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, created.Role)
	assert.True(t, created.IsActive)
}
