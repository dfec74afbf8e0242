package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"baz-car-admin/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout answers 503 with a REQUEST_TIMEOUT envelope when the handler does
// not finish in time.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
