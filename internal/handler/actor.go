package handler

import (
	"net"
	"net/http"
	"strings"

	"baz-car-admin/internal/middleware"
	"baz-car-admin/internal/model"
)

func actorFromRequest(r *http.Request) model.Actor {
	actor := model.Actor{IP: clientIP(r)}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = user.ID
	actor.Username = user.Username
	return actor
}

func clientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}

	return strings.TrimSpace(r.RemoteAddr)
}
