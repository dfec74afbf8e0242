package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	// maxCapturedErrorBody bounds how much of an error response is kept for
	// the access log.
	maxCapturedErrorBody = 4 << 10
)

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int64("bytes", rec.written),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()),
			slog.String("client_ip", extractClientIP(r)),
		}
		if cacheState := w.Header().Get("X-Cache"); cacheState != "" {
			attrs = append(attrs, slog.String("cache", cacheState))
		}
		if rec.status >= http.StatusBadRequest {
			attrs = append(attrs, failureAttrs(r, rec.errBody.Bytes())...)
		}

		slog.LogAttrs(context.Background(), levelForStatus(rec.status), "request", attrs...)
	})
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// failureAttrs pulls the query string and the error envelope out of a failed
// response so a warning line is enough to reproduce the call.
func failureAttrs(r *http.Request, body []byte) []slog.Attr {
	var attrs []slog.Attr
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}

	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if len(body) == 0 || json.Unmarshal(body, &envelope) != nil || envelope.Error == nil {
		return attrs
	}

	attrs = append(attrs,
		slog.String("error_code", envelope.Error.Code),
		slog.String("error_message", envelope.Error.Message),
	)
	if envelope.Error.Details != "" {
		attrs = append(attrs, slog.String("error_details", envelope.Error.Details))
	}

	return attrs
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
	errBody     bytes.Buffer
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	if rec.wroteHeader {
		return
	}
	rec.status = statusCode
	rec.wroteHeader = true
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	if rec.status >= http.StatusBadRequest {
		if room := maxCapturedErrorBody - rec.errBody.Len(); room > 0 {
			rec.errBody.Write(b[:min(room, len(b))])
		}
	}

	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach deadlines on the real writer.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
