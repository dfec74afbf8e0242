package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("car created", "car_id", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "car created", record["msg"])
	assert.EqualValues(t, 7, record["car_id"])
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("skipped")
	assert.Empty(t, buf.String())

	log.With("request_id", "abc").WithGroup("upload").Warn("rejected", "size", 10, slog.Group("limit", "max", 5))

	out := buf.String()
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "request_id")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "upload.size")
	assert.Contains(t, out, "upload.limit.max")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}
