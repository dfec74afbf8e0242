package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
)

const (
	bcryptCost        = 12
	maxPasswordBytes  = 72
	minUsernameLength = 3
	minPasswordLength = 6

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthService struct {
	users      repository.UserStore
	tokens     repository.TokenStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users repository.UserStore, tokens repository.TokenStore, jwtSecret string, accessTTL time.Duration, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate checks a username/password pair. ok is false for unknown
// users, wrong passwords and inactive accounts alike; err is reserved for
// storage failures.
func (s *AuthService) Authenticate(ctx context.Context, username string, password string) (model.User, bool, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}

	if !verifyPassword(user.PasswordHash, password) || !user.IsActive {
		return model.User{}, false, nil
	}

	return user, true, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (model.AuthResponse, error) {
	user, ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !ok {
		return model.AuthResponse{}, model.ErrInvalidCredentials
	}

	access, err := s.IssueAccessToken(user.ID)
	if err != nil {
		return model.AuthResponse{}, err
	}

	refresh, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a live refresh token for a new access token and a
// rotated refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenResponse, error) {
	user, err := s.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return model.TokenResponse{}, err
	}

	access, err := s.IssueAccessToken(user.ID)
	if err != nil {
		return model.TokenResponse{}, err
	}

	rotated, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{Token: access, RefreshToken: rotated}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.RevokeAll(ctx, userID)
}

func (s *AuthService) RevokeAll(ctx context.Context, userID int64) error {
	return s.tokens.DeleteAllForUser(ctx, userID)
}

// CurrentUser resolves the owner of an access token.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.VerifyAccessToken(accessToken)
	if err != nil {
		return model.User{}, model.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *AuthService) CreateUser(ctx context.Context, username string, password string, role string) (model.User, error) {
	username = strings.TrimSpace(username)
	role = strings.TrimSpace(role)

	if utf8.RuneCountInString(username) < minUsernameLength {
		return model.User{}, fmt.Errorf("%w: username must be at least %d characters", model.ErrInvalidInput, minUsernameLength)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return model.User{}, fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, minPasswordLength)
	}
	if role == "" {
		role = model.DefaultRole
	}

	hash, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	return s.users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
}

func (s *AuthService) IssueAccessToken(userID int64) (string, error) {
	now := s.now()
	return s.signToken(jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"typ": tokenTypeAccess,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.accessTTL).Unix(),
	})
}

// IssueRefreshToken signs a refresh token and makes it the only one the
// user holds.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID int64) (string, error) {
	now := s.now()
	expiresAt := now.Add(s.refreshTTL)

	token, err := s.signToken(jwt.MapClaims{
		"user_id": userID,
		"typ":     tokenTypeRefresh,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	})
	if err != nil {
		return "", err
	}

	if err := s.tokens.Rotate(ctx, userID, token, expiresAt); err != nil {
		return "", err
	}

	return token, nil
}

func (s *AuthService) VerifyAccessToken(tokenString string) (model.AuthClaims, error) {
	claims, err := s.parseToken(tokenString, tokenTypeAccess)
	if err != nil {
		return model.AuthClaims{}, err
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return model.AuthClaims{}, model.ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	return model.AuthClaims{UserID: userID, Type: tokenTypeAccess, TokenID: jti}, nil
}

// VerifyRefreshToken validates the signature, the persisted row and its
// expiry, then resolves the owner. Expired rows are deleted on the way.
func (s *AuthService) VerifyRefreshToken(ctx context.Context, tokenString string) (model.User, error) {
	claims, err := s.parseToken(tokenString, tokenTypeRefresh)
	if err != nil {
		return model.User{}, err
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return model.User{}, model.ErrInvalidToken
	}

	stored, err := s.tokens.Find(ctx, tokenString)
	if errors.Is(err, model.ErrTokenNotFound) {
		return model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}

	if stored.Expired(s.now()) {
		if err := s.tokens.Delete(ctx, tokenString); err != nil {
			return model.User{}, err
		}
		return model.User{}, model.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, int64(rawID))
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *AuthService) parseToken(tokenString string, expectedType string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, model.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != expectedType {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}

func (s *AuthService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}

// truncatePassword cuts to bcrypt's 72 byte limit without splitting a
// multi-byte rune.
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) <= maxPasswordBytes {
		return b
	}

	b = b[:maxPasswordBytes]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}
