package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/database"
	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
	"baz-car-admin/internal/service"
	"baz-car-admin/internal/storage"
)

type testStack struct {
	cars    *service.CarService
	addons  *service.AddonService
	booking *service.BookingService
	auth    *service.AuthService
	files   *service.FileService
	root    string
}

func newTestStack(t *testing.T, allowedMIME ...string) testStack {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	files, err := service.NewFileService(store, "temp", 1024, allowedMIME, filepath.Join(t.TempDir(), "thumbs"))
	require.NoError(t, err)

	carRepo := repository.NewCarRepository(db.SQL)
	addonRepo := repository.NewAdditionalServiceRepository(db.SQL)

	return testStack{
		cars:    service.NewCarService(carRepo, addonRepo, files, nil),
		addons:  service.NewAddonService(addonRepo, nil),
		booking: service.NewBookingService(carRepo, addonRepo, nil, "79990000000"),
		auth: service.NewAuthService(repository.NewUserRepository(db.SQL), repository.NewTokenRepository(db.SQL),
			"handler-secret", time.Minute, time.Hour),
		files: files,
		root:  store.RootAbs(),
	}
}

func (s testStack) createCar(t *testing.T, name string, price int64) model.Car {
	t.Helper()

	car, err := s.cars.Create(context.Background(), model.CreateCarRequest{Name: name, Price: &price}, model.Actor{})
	require.NoError(t, err)
	return car
}

// withURLParam attaches a chi route parameter to r.
func withURLParam(r *http.Request, key string, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method string, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type uploadPart struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, target string, parts ...uploadPart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
