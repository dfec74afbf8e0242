package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"baz-car-admin/internal/model"
)

type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

type TokenStore interface {
	// Rotate replaces every refresh token of the user with token in a
	// single transaction.
	Rotate(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (model.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
	CleanExpired(ctx context.Context, now time.Time) (int64, error)
}

type CarStore interface {
	List(ctx context.Context) ([]model.Car, error)
	FindByID(ctx context.Context, id int64) (model.Car, error)
	Create(ctx context.Context, c model.Car) (model.Car, error)
	Update(ctx context.Context, c model.Car) (model.Car, error)
	UpdateImages(ctx context.Context, id int64, images []string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	PriceRange(ctx context.Context) (minPrice *int64, maxPrice *int64, err error)
	FuelTypes(ctx context.Context) ([]string, error)
	TopRated(ctx context.Context, limit int) ([]model.Car, error)
}

type AdditionalServiceStore interface {
	List(ctx context.Context, skip int, limit int) ([]model.AdditionalService, error)
	ListActive(ctx context.Context) ([]model.AdditionalService, error)
	FindByID(ctx context.Context, id int64) (model.AdditionalService, error)
	FindByServiceID(ctx context.Context, serviceID string) (model.AdditionalService, error)
	FindByServiceIDs(ctx context.Context, serviceIDs []string) ([]model.AdditionalService, error)
	Create(ctx context.Context, s model.AdditionalService) (model.AdditionalService, error)
	Update(ctx context.Context, s model.AdditionalService) (model.AdditionalService, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

var (
	_ UserStore              = (*UserRepository)(nil)
	_ TokenStore             = (*TokenRepository)(nil)
	_ CarStore               = (*CarRepository)(nil)
	_ AdditionalServiceStore = (*AdditionalServiceRepository)(nil)
)

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// JSON columns hold NULL for nil values so that absent and empty stay
// distinguishable.
func encodeStrings(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode list column: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeStrings(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, fmt.Errorf("decode list column: %w", err)
	}
	return out, nil
}

func encodeObject(value map[string]any) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode object column: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeObject(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, fmt.Errorf("decode object column: %w", err)
	}
	return out, nil
}
