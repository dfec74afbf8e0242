package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/model"
)

func pngBytes(t *testing.T, w int, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func onDisk(root string, publicPath string) string {
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(publicPath, "/uploads/")))
}

func TestFileHandler_UploadTemp(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	rec := httptest.NewRecorder()
	h.UploadTemp(rec, multipartRequest(t, "/api/v1/cars/uploads/temp",
		uploadPart{field: "files", name: "front.png", data: pngBytes(t, 4, 4)},
		uploadPart{field: "ignored", name: "x.png", data: pngBytes(t, 4, 4)},
		uploadPart{field: "files", name: "back.png", data: pngBytes(t, 4, 4)},
	))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.UploadResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	require.Len(t, resp.Uploaded, 2)
	for _, p := range resp.Uploaded {
		assert.True(t, strings.HasPrefix(p, "/uploads/temp/"), p)
		assert.True(t, strings.HasSuffix(p, ".png"), p)
		assert.FileExists(t, onDisk(stack.root, p))
	}
}

func TestFileHandler_UploadRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t, "image/*")
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	rec := httptest.NewRecorder()
	h.UploadTemp(rec, multipartRequest(t, "/api/v1/cars/uploads/temp",
		uploadPart{field: "files", name: "ok.png", data: pngBytes(t, 2, 2)},
		uploadPart{field: "files", name: "notes.txt", data: []byte("plain text, not an image")},
	))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	entries, err := os.ReadDir(filepath.Join(stack.root, "temp"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileHandler_UploadRejectsEmptyAndInvalidBodies(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	rec := httptest.NewRecorder()
	h.UploadTemp(rec, multipartRequest(t, "/api/v1/cars/uploads/temp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UploadTemp(rec, jsonRequest(t, http.MethodPost, "/api/v1/cars/uploads/temp", map[string]string{"a": "b"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileHandler_UploadOverRequestLimit(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 64)

	rec := httptest.NewRecorder()
	h.UploadTemp(rec, multipartRequest(t, "/api/v1/cars/uploads/temp",
		uploadPart{field: "files", name: "big.bin", data: bytes.Repeat([]byte("x"), 512)},
	))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFileHandler_UploadCarImages(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)
	car := stack.createCar(t, "Kia Rio", 2500)

	req := multipartRequest(t, "/api/v1/cars/"+strconv.FormatInt(car.ID, 10)+"/images",
		uploadPart{field: "files", name: "side.jpg", data: pngBytes(t, 3, 3)},
	)
	rec := httptest.NewRecorder()
	h.UploadCarImages(rec, withURLParam(req, "car_id", strconv.FormatInt(car.ID, 10)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.UploadResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	require.Len(t, resp.Uploaded, 1)
	assert.True(t, strings.HasPrefix(resp.Uploaded[0], "/uploads/"+strconv.FormatInt(car.ID, 10)+"/"))

	stored, err := stack.cars.Get(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Uploaded, stored.Images)
}

func TestFileHandler_UploadCarImagesUnknownCar(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	req := multipartRequest(t, "/api/v1/cars/999/images",
		uploadPart{field: "files", name: "side.png", data: pngBytes(t, 3, 3)},
	)
	rec := httptest.NewRecorder()
	h.UploadCarImages(rec, withURLParam(req, "car_id", "999"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, err := os.Stat(filepath.Join(stack.root, "999"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileHandler_Cleanup(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	stored, err := stack.files.StoreTemp(context.Background(), "a.png", bytes.NewReader(pngBytes(t, 2, 2)))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Cleanup(rec, jsonRequest(t, http.MethodPost, "/api/v1/cars/uploads/cleanup", []string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Cleanup(rec, jsonRequest(t, http.MethodPost, "/api/v1/cars/uploads/cleanup",
		[]string{stored, "/uploads/temp/missing.png", "/uploads/../../etc/passwd"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.CleanupResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, 1, resp.Deleted)
	assert.NoFileExists(t, onDisk(stack.root, stored))
}

func TestFileHandler_Thumbnail(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	h := NewFileHandler(stack.files, stack.cars, 1<<20)

	image, err := stack.files.StoreTemp(context.Background(), "car.png", bytes.NewReader(pngBytes(t, 400, 200)))
	require.NoError(t, err)
	text, err := stack.files.StoreTemp(context.Background(), "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Thumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cars/images/thumbnail?size=100&path="+image, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.Thumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cars/images/thumbnail?path="+text, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Thumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cars/images/thumbnail", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Thumbnail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cars/images/thumbnail?path=/uploads/temp/none.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
