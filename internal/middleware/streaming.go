package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds static file transfers without buffering them the
// way http.TimeoutHandler does. A transfer is cut when it runs longer than
// maxDuration or when no bytes are written for idleTimeout.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			iw := &idleWriter{ResponseWriter: w, rc: rc, cancel: cancel, idle: idleTimeout}
			iw.timer = time.AfterFunc(idleTimeout, iw.expire)
			defer iw.stop()

			next.ServeHTTP(iw, r.WithContext(ctx))

			if iw.expired() {
				slog.Warn("static transfer stalled", "path", r.URL.Path, "bytes", iw.written())
			}
		})
	}
}

type idleWriter struct {
	http.ResponseWriter
	rc     *http.ResponseController
	cancel context.CancelFunc
	idle   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	bytes   int64
	stalled bool
}

func (iw *idleWriter) Write(b []byte) (int, error) {
	iw.mu.Lock()
	iw.timer.Reset(iw.idle)
	iw.mu.Unlock()

	n, err := iw.ResponseWriter.Write(b)

	iw.mu.Lock()
	iw.bytes += int64(n)
	iw.mu.Unlock()
	return n, err
}

func (iw *idleWriter) expire() {
	iw.mu.Lock()
	iw.stalled = true
	iw.mu.Unlock()

	_ = iw.rc.SetWriteDeadline(time.Now())
	iw.cancel()
}

func (iw *idleWriter) stop() {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	iw.timer.Stop()
}

func (iw *idleWriter) expired() bool {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.stalled
}

func (iw *idleWriter) written() int64 {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.bytes
}

func (iw *idleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}

func (iw *idleWriter) Flush() {
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
