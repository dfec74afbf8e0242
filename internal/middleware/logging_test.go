package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: swaps the default logger.
func TestLogging_RecordsErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking?x=1", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, float64(http.StatusBadRequest), record["status"])
	assert.Equal(t, "BAD_REQUEST", record["error_code"])
	assert.Equal(t, "x=1", record["query"])
}

func TestLogging_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Logging(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

// Not parallel: swaps the default logger.
func TestLogging_RecordsBytesAndCacheState(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cars", nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, float64(16), record["bytes"])
	assert.Equal(t, "HIT", record["cache"])
	assert.NotContains(t, record, "query")
}

func TestLevelForStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelInfo, levelForStatus(http.StatusNoContent))
	assert.Equal(t, slog.LevelWarn, levelForStatus(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, levelForStatus(http.StatusBadGateway))
}
