package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/model"
	"baz-car-admin/pkg/apierror"
)

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "api error passthrough", err: apierror.New("UNSUPPORTED_TYPE", "nope", "text/plain", http.StatusUnsupportedMediaType), wantStatus: http.StatusUnsupportedMediaType, wantCode: "UNSUPPORTED_TYPE"},
		{name: "car not found", err: fmt.Errorf("load: %w", model.ErrCarNotFound), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "addon not found", err: model.ErrAdditionalServiceNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "file not found", err: model.ErrFileNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "user exists", err: model.ErrUserAlreadyExists, wantStatus: http.StatusConflict, wantCode: "ALREADY_EXISTS"},
		{name: "bad credentials", err: model.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "invalid token", err: model.ErrInvalidToken, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "duplicate service id", err: model.ErrDuplicateServiceID, wantStatus: http.StatusBadRequest, wantCode: "DUPLICATE_SERVICE_ID"},
		{name: "date range", err: model.ErrInvalidDateRange, wantStatus: http.StatusBadRequest, wantCode: "INVALID_DATE_RANGE"},
		{name: "file too large", err: fmt.Errorf("%w: limit is 10 bytes", model.ErrFileTooLarge), wantStatus: http.StatusBadRequest, wantCode: "FILE_TOO_LARGE"},
		{name: "invalid input", err: fmt.Errorf("%w: name is required", model.ErrInvalidInput), wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unknown fee kind", err: model.ErrUnknownFeeKind, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unclassified", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestWriteError_InvalidInputCarriesDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: name is required", model.ErrInvalidInput))

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid input: name is required", env.Error.Details)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var payload model.LoginRequest
	err := decodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &payload)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request body is required", apiErr.Message)

	err = decodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")), &payload)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)

	require.NoError(t, decodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"admin"}`)), &payload))
	assert.Equal(t, "admin", payload.Username)
}

func TestPathID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{raw: "42", want: 42, wantOK: true},
		{raw: "0"},
		{raw: "-3"},
		{raw: "abc"},
		{raw: ""},
	}

	for _, tt := range tests {
		tt := tt
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "car_id", tt.raw)
		id, err := pathID(req, "car_id")
		if !tt.wantOK {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, id)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	actor := actorFromRequest(req)
	assert.Equal(t, "203.0.113.9", actor.IP)
	assert.Zero(t, actor.UserID)
}
