package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/model"
)

func TestUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	created := createTestUser(t, db, "admin")
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.DefaultRole, created.Role)

	byName, err := repo.FindByUsername(ctx, " admin ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.True(t, byName.IsActive)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)
	assert.False(t, byID.CreatedAt.IsZero())

	_, err = repo.Create(ctx, model.User{Username: "admin", PasswordHash: "other"})
	require.ErrorIs(t, err, model.ErrUserAlreadyExists)

	_, err = repo.FindByID(ctx, 9999)
	require.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = repo.FindByUsername(ctx, "ghost")
	require.ErrorIs(t, err, model.ErrUserNotFound)
}
