package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/model"
)

type fakeResolver struct {
	users map[string]model.User
	err   error
}

func (f fakeResolver) CurrentUser(_ context.Context, token string) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	user, ok := f.users[token]
	if !ok {
		return model.User{}, model.ErrUnauthorized
	}
	return user, nil
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	t.Parallel()

	resolver := fakeResolver{users: map[string]model.User{"good": {ID: 5, Username: "admin"}}}
	protected := NewAuthMiddleware(resolver).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(5), user.ID)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer good", want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusNoContent},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", want: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuthMiddleware_StorageFailure(t *testing.T) {
	t.Parallel()

	protected := NewAuthMiddleware(fakeResolver{err: errors.New("database is locked")}).RequireAuth(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer any")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUserFromContext_Missing(t *testing.T) {
	t.Parallel()

	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}
