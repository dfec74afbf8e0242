package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"baz-car-admin/internal/model"
	"baz-car-admin/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrCarNotFound):
		status, body.Code, body.Message = http.StatusNotFound, "NOT_FOUND", "Car not found"
	case errors.Is(err, model.ErrAdditionalServiceNotFound):
		status, body.Code, body.Message = http.StatusNotFound, "NOT_FOUND", "Additional service not found"
	case errors.Is(err, model.ErrUserNotFound):
		status, body.Code, body.Message = http.StatusNotFound, "NOT_FOUND", "User not found"
	case errors.Is(err, model.ErrFileNotFound):
		status, body.Code, body.Message = http.StatusNotFound, "NOT_FOUND", "File not found"
	case errors.Is(err, model.ErrUserAlreadyExists):
		status, body.Code, body.Message = http.StatusConflict, "ALREADY_EXISTS", "User already exists"
	case errors.Is(err, model.ErrInvalidCredentials):
		status, body.Code, body.Message = http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect username or password"
	case errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrTokenNotFound):
		status, body.Code, body.Message = http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"
	case errors.Is(err, model.ErrUnauthorized):
		status, body.Code, body.Message = http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"
	case errors.Is(err, model.ErrDuplicateServiceID):
		status, body.Code, body.Message = http.StatusBadRequest, "DUPLICATE_SERVICE_ID", "Additional service with this service_id already exists"
	case errors.Is(err, model.ErrInvalidDateRange):
		status, body.Code, body.Message = http.StatusBadRequest, "INVALID_DATE_RANGE", "Return date must be after pickup date"
		body.Details = err.Error()
	case errors.Is(err, model.ErrFileTooLarge):
		status, body.Code, body.Message = http.StatusBadRequest, "FILE_TOO_LARGE", "File too large"
		body.Details = err.Error()
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrUnknownFeeKind):
		status, body.Code, body.Message = http.StatusBadRequest, "BAD_REQUEST", "Invalid input"
		body.Details = err.Error()
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.New("BAD_REQUEST", "request body is required", "", http.StatusBadRequest)
		}
		return apierror.New("BAD_REQUEST", "invalid JSON body", err.Error(), http.StatusBadRequest)
	}
	return nil
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.New("BAD_REQUEST", "invalid identifier", param, http.StatusBadRequest)
	}
	return id, nil
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
