package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/service"
	"baz-car-admin/pkg/apierror"
)

// FileHandler serves car media uploads, temp cleanup and thumbnails.
type FileHandler struct {
	files         *service.FileService
	cars          *service.CarService
	maxUploadSize int64
}

func NewFileHandler(files *service.FileService, cars *service.CarService, maxUploadSize int64) *FileHandler {
	return &FileHandler{files: files, cars: cars, maxUploadSize: maxUploadSize}
}

type storeFunc func(ctx context.Context, originalName string, reader io.Reader) (string, error)

func (h *FileHandler) UploadTemp(w http.ResponseWriter, r *http.Request) {
	uploaded, err := h.receive(w, r, h.files.StoreTemp)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UploadResponse{Uploaded: uploaded}, nil)
}

func (h *FileHandler) UploadCarImages(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.cars.Get(r.Context(), carID); err != nil {
		writeError(w, err)
		return
	}

	uploaded, err := h.receive(w, r, func(ctx context.Context, name string, reader io.Reader) (string, error) {
		return h.files.StoreForCar(ctx, carID, name, reader)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.cars.AppendImages(r.Context(), carID, uploaded, actorFromRequest(r)); err != nil {
		h.rollback(r.Context(), uploaded)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UploadResponse{Uploaded: uploaded}, nil)
}

// receive stores every "files" part of a multipart body. The first failure
// aborts the request and removes what was already written.
func (h *FileHandler) receive(w http.ResponseWriter, r *http.Request, store storeFunc) ([]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest)
	}

	uploaded := []string{}
	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			h.rollback(r.Context(), uploaded)
			if isPayloadTooLarge(nextErr) {
				return nil, payloadTooLarge()
			}
			return nil, apierror.New("BAD_REQUEST", "invalid multipart stream", nextErr.Error(), http.StatusBadRequest)
		}

		if part.FormName() != "files" || strings.TrimSpace(part.FileName()) == "" {
			_ = part.Close()
			continue
		}

		publicPath, storeErr := store(r.Context(), part.FileName(), part)
		_ = part.Close()
		if storeErr != nil {
			h.rollback(r.Context(), uploaded)
			if isPayloadTooLarge(storeErr) {
				return nil, payloadTooLarge()
			}
			return nil, storeErr
		}

		uploaded = append(uploaded, publicPath)
	}

	if len(uploaded) == 0 {
		return nil, apierror.New("BAD_REQUEST", "no files provided", "files", http.StatusBadRequest)
	}

	return uploaded, nil
}

func (h *FileHandler) rollback(ctx context.Context, uploaded []string) {
	if len(uploaded) == 0 {
		return
	}
	if _, err := h.files.DeleteByPublicPaths(context.WithoutCancel(ctx), uploaded); err != nil {
		slog.Warn("failed to roll back uploaded files", "count", len(uploaded), "error", err)
	}
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func payloadTooLarge() error {
	return apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_REQUEST_SIZE", "MAX_UPLOAD_REQUEST_SIZE", http.StatusRequestEntityTooLarge)
}

// Cleanup deletes the listed uploads, typically temp files of an abandoned
// car form.
func (h *FileHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var paths []string
	if err := decodeJSON(r, &paths); err != nil {
		writeError(w, err)
		return
	}

	if len(paths) == 0 {
		writeError(w, apierror.New("BAD_REQUEST", "no paths provided", "", http.StatusBadRequest))
		return
	}

	deleted, err := h.files.DeleteByPublicPaths(r.Context(), paths)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.CleanupResponse{Deleted: deleted}, nil)
}

func (h *FileHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	requestedPath := strings.TrimSpace(r.URL.Query().Get("path"))
	if requestedPath == "" {
		writeError(w, apierror.New("BAD_REQUEST", "query parameter 'path' is required", "path", http.StatusBadRequest))
		return
	}

	size := parseIntOrDefault(r.URL.Query().Get("size"), 0)

	file, info, err := h.files.Thumbnail(requestedPath, size)
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "UNSUPPORTED_TYPE" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeError(w, err)
		return
	}
	defer file.Close()

	filename := path.Base(requestedPath) + ".jpg"
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, info.ModTime(), file)
}
