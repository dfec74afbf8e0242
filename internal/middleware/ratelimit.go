package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAuthRPM   = 10
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 1000
)

// limitClass separates the login/refresh budget from everything else so a
// password-guessing client cannot starve catalog browsing and vice versa.
type limitClass uint8

const (
	classGeneral limitClass = iota
	classAuth
)

type limiterKey struct {
	ip    string
	class limitClass
}

type trackedLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int

	mu       sync.Mutex
	limiters map[limiterKey]*trackedLimiter
}

// NewRateLimitMiddleware limits each client IP per minute. A non-positive
// generalRPM disables the general limit; authRPM falls back to 10.
func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if authRPM <= 0 {
		authRPM = defaultAuthRPM
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		limiters:   make(map[limiterKey]*trackedLimiter),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.ToLower(r.URL.Path)
		if r.Method == http.MethodOptions || strings.HasPrefix(path, "/uploads/") {
			next.ServeHTTP(w, r)
			return
		}

		class := classGeneral
		if strings.HasPrefix(path, "/api/v1/auth") {
			class = classAuth
		}

		if wait, ok := m.admit(limiterKey{ip: extractClientIP(r), class: class}); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// admit consumes one token for key. When the bucket is empty it returns the
// time until the next token without consuming it.
func (m *RateLimitMiddleware) admit(key limiterKey) (time.Duration, bool) {
	now := time.Now()
	limiter := m.limiterFor(key, now)

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return time.Minute, false
	}
	if wait := reservation.DelayFrom(now); wait > 0 {
		reservation.CancelAt(now)
		return wait, false
	}

	return 0, true
}

func (m *RateLimitMiddleware) limiterFor(key limiterKey, now time.Time) *trackedLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.limiters) >= limiterSweepSize {
		for k, l := range m.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(m.limiters, k)
			}
		}
	}

	tracked, ok := m.limiters[key]
	if !ok {
		tracked = &trackedLimiter{Limiter: m.newLimiter(key.class)}
		m.limiters[key] = tracked
	}
	tracked.lastSeen = now

	return tracked
}

func (m *RateLimitMiddleware) newLimiter(class limitClass) *rate.Limiter {
	rpm := m.generalRPM
	if class == classAuth {
		rpm = m.authRPM
	}
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func extractClientIP(r *http.Request) string {
	if forwarded, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(forwarded) != "" {
		return strings.TrimSpace(forwarded)
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}

	return remote
}
