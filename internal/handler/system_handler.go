package handler

import (
	"net/http"

	"baz-car-admin/internal/model"
)

type SystemHandler struct {
	version string
}

func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

type serviceInfo struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func (h *SystemHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, serviceInfo{
		Message: "Baz Car Admin API",
		Version: h.version,
		Endpoints: map[string]string{
			"health":              "GET /health",
			"auth":                "/api/v1/auth",
			"cars":                "/api/v1/cars",
			"additional_services": "/api/v1/additional-services",
			"booking":             "POST /api/v1/booking",
			"uploads":             "GET /uploads/{path}",
		},
	}, nil)
}

func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, model.StatusResponse{Status: "ok", Module: "baz-car-admin"}, nil)
}
