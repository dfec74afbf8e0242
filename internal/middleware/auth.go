package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"baz-car-admin/internal/model"
)

type userResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (model.User, error)
}

type contextKey string

const userContextKey contextKey = "auth_user"

type AuthMiddleware struct {
	resolver userResolver
}

func NewAuthMiddleware(resolver userResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth admits requests carrying a valid access token for an existing
// user and stores that user in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeUnauthorized(w, "missing or invalid authorization header")
			return
		}

		token := strings.TrimSpace(header[7:])
		user, err := m.resolver.CurrentUser(r.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrUnauthorized) {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			slog.Error("resolve current user", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey).(model.User)
	return user, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
