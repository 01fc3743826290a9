package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestRepositoryCreateDefaultsToActiveCustomer(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "ada@example.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Obi",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "ada@example.com", PasswordHash: "x", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryEmailForAndLastLogin(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		FirstName:    "Bisi",
		LastName:     "Ade",
	})
	require.NoError(t, err)

	email, err := repo.EmailFor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", email)

	_, err = repo.EmailFor(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.WithinDuration(t, at, *reloaded.LastLoginAt, time.Second)

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "$argon2id$v=19$rotated"))
	reloaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$v=19$rotated", reloaded.PasswordHash)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}
