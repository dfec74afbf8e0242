package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"baz-car-admin/internal/model"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Rotate(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("revoke previous refresh tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit token rotation: %w", err)
	}
	return nil
}

func (r *TokenRepository) Find(ctx context.Context, token string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = ?`, token).
		Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return t, nil
}

func (r *TokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleaned tokens: %w", err)
	}
	return n, nil
}
