package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/database"
	"baz-car-admin/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	return db.SQL
}

func createTestUser(t *testing.T, db *sql.DB, username string) model.User {
	t.Helper()

	u, err := NewUserRepository(db).Create(context.Background(), model.User{
		Username:     username,
		PasswordHash: "hash",
		IsActive:     true,
	})
	require.NoError(t, err)
	return u
}
