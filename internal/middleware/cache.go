package middleware

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"baz-car-admin/internal/cache"
)

const maxCachedBody = 1 << 20

// captureWriter records status and body while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status      int
	buf         bytes.Buffer
	overflow    bool
	wroteHeader bool
}

func (cw *captureWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.status = code
	cw.wroteHeader = true
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.buf.Len()+len(b) > maxCachedBody {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// Cache serves repeated GET requests from Redis. Only complete 200
// responses are stored; X-Cache reports HIT or MISS.
func Cache(c *cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !c.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := c.Key(r.Method, r.URL.Path, r.URL.RawQuery)

			if payload, ok := c.Get(ctx, key); ok {
				if status, header, body, ok := decodePayload(payload); ok {
					for k, values := range header {
						if http.CanonicalHeaderKey(k) == "Content-Length" {
							continue
						}
						for _, v := range values {
							w.Header().Add(k, v)
						}
					}
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(status)
					_, _ = w.Write(body)
					return
				}
			}

			gen := c.Generation(ctx)
			w.Header().Set("X-Cache", "MISS")
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status != http.StatusOK || cw.overflow {
				return
			}

			header := w.Header().Clone()
			header.Del("X-Cache")
			header.Del(requestIDHeader)
			if payload, err := encodePayload(cw.status, header, cw.buf.Bytes()); err == nil {
				c.SetIfGeneration(ctx, key, gen, payload)
			}
		})
	}
}

const purgeTimeout = 5 * time.Second

// InvalidateCache purges the response cache when a write request succeeds.
// The purge runs before the status line is sent, so a client that sees the
// write succeed never reads the old catalog afterwards.
func InvalidateCache(c *cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !c.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			pw := &purgeWriter{ResponseWriter: w, purge: func() {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), purgeTimeout)
				defer cancel()
				if _, err := c.Purge(ctx); err != nil {
					slog.Warn("cache purge after write failed", "method", r.Method, "path", r.URL.Path, "error", err)
				}
			}}
			next.ServeHTTP(pw, r)

			// A handler that writes nothing gets an implicit 200 after it returns.
			if !pw.wroteHeader {
				pw.purge()
			}
		})
	}
}

type purgeWriter struct {
	http.ResponseWriter
	purge       func()
	wroteHeader bool
}

func (pw *purgeWriter) WriteHeader(code int) {
	if pw.wroteHeader {
		return
	}
	pw.wroteHeader = true
	if code >= 200 && code < 300 {
		pw.purge()
	}
	pw.ResponseWriter.WriteHeader(code)
}

func (pw *purgeWriter) Write(b []byte) (int, error) {
	if !pw.wroteHeader {
		pw.WriteHeader(http.StatusOK)
	}
	return pw.ResponseWriter.Write(b)
}

func (pw *purgeWriter) Unwrap() http.ResponseWriter {
	return pw.ResponseWriter
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 8+len(headerJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(headerJSON)))
	copy(out[8:], headerJSON)
	copy(out[8+len(headerJSON):], body)
	return out, nil
}

func decodePayload(payload []byte) (int, http.Header, []byte, bool) {
	if len(payload) < 8 {
		return 0, nil, nil, false
	}

	status := int(binary.BigEndian.Uint32(payload[0:4]))
	headerLen := int(binary.BigEndian.Uint32(payload[4:8]))
	if headerLen < 0 || 8+headerLen > len(payload) {
		return 0, nil, nil, false
	}

	header := make(http.Header)
	if headerLen > 0 {
		if err := json.Unmarshal(payload[8:8+headerLen], &header); err != nil {
			return 0, nil, nil, false
		}
	}

	return status, header, payload[8+headerLen:], true
}
