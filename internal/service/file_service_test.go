package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/storage"
	"baz-car-admin/pkg/apierror"
)

var pngHeader = "\x89PNG\r\n\x1a\n"

func newTestFileService(t *testing.T, maxFileSize int64, allowed []string) (*FileService, string) {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New(root)
	require.NoError(t, err)

	svc, err := NewFileService(store, "temp", maxFileSize, allowed, filepath.Join(t.TempDir(), "thumbs"))
	require.NoError(t, err)
	return svc, store.RootAbs()
}

func diskPath(root string, publicPath string) string {
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(publicPath, PublicPrefix)))
}

func TestFileService_Store(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores temp upload under generated name", func(t *testing.T) {
		t.Parallel()
		svc, root := newTestFileService(t, 1024, nil)

		publicPath, err := svc.StoreTemp(ctx, "My Car.PNG", strings.NewReader(pngHeader+"pixels"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(publicPath, "/uploads/temp/"))
		assert.True(t, strings.HasSuffix(publicPath, ".PNG"))
		assert.NotContains(t, publicPath, "My Car")
		assert.True(t, svc.IsTempPath(publicPath))

		content, err := os.ReadFile(diskPath(root, publicPath))
		require.NoError(t, err)
		assert.Equal(t, pngHeader+"pixels", string(content))
	})

	t.Run("stores car upload in car directory", func(t *testing.T) {
		t.Parallel()
		svc, root := newTestFileService(t, 1024, nil)

		publicPath, err := svc.StoreForCar(ctx, 42, "front.jpg", strings.NewReader("data"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(publicPath, "/uploads/42/"))
		assert.False(t, svc.IsTempPath(publicPath))
		assert.FileExists(t, diskPath(root, publicPath))
	})

	t.Run("rejects oversized content and removes the partial file", func(t *testing.T) {
		t.Parallel()
		svc, root := newTestFileService(t, 10, nil)

		_, err := svc.StoreTemp(ctx, "big.txt", strings.NewReader(strings.Repeat("x", 11)))
		require.ErrorIs(t, err, model.ErrFileTooLarge)

		entries, err := os.ReadDir(filepath.Join(root, "temp"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("accepts content exactly at the limit", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestFileService(t, 10, nil)

		_, err := svc.StoreTemp(ctx, "exact.txt", strings.NewReader(strings.Repeat("x", 10)))
		require.NoError(t, err)
	})

	t.Run("rejects disallowed mime type before writing", func(t *testing.T) {
		t.Parallel()
		svc, root := newTestFileService(t, 1024, []string{"image/*"})

		_, err := svc.StoreTemp(ctx, "notes.txt", strings.NewReader("plain text"))
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 415, apiErr.HTTPStatus)

		entries, err := os.ReadDir(filepath.Join(root, "temp"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestFileService_Promote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, root := newTestFileService(t, 1024, nil)

	first, err := svc.StoreTemp(ctx, "a.jpg", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := svc.StoreTemp(ctx, "b.png", strings.NewReader("second"))
	require.NoError(t, err)
	carFile, err := svc.StoreForCar(ctx, 3, "c.jpg", strings.NewReader("other car"))
	require.NoError(t, err)

	promoted, err := svc.Promote(ctx, []string{
		first,
		"/uploads/temp/missing.jpg",
		"/uploads/../etc/passwd",
		carFile,
		second,
	}, 7)
	require.NoError(t, err)
	require.Len(t, promoted, 2)

	for i, p := range promoted {
		assert.True(t, strings.HasPrefix(p, "/uploads/7/"), p)
		assert.FileExists(t, diskPath(root, p))
		assert.Equal(t, []string{".jpg", ".png"}[i], filepath.Ext(p))
	}
	assert.NoFileExists(t, diskPath(root, first))
	assert.NoFileExists(t, diskPath(root, second))
	assert.FileExists(t, diskPath(root, carFile))

	content, err := os.ReadFile(diskPath(root, promoted[0]))
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
}

func TestFileService_DeleteAndCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, root := newTestFileService(t, 1024, nil)

	a, err := svc.StoreTemp(ctx, "a.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := svc.StoreForCar(ctx, 1, "b.jpg", strings.NewReader("b"))
	require.NoError(t, err)

	deleted, err := svc.DeleteByPublicPaths(ctx, []string{a, b, a, "/uploads/1", "not-a-public-path", "/uploads/../x"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, name := range []string{"x.jpg", "y.jpg", "z.jpg"} {
		_, err := svc.StoreTemp(ctx, name, strings.NewReader(name))
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "temp", "nested"), 0o755))

	cleaned, err := svc.CleanupTemp(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned)
	assert.DirExists(t, filepath.Join(root, "temp", "nested"))

	_, err = svc.StoreForCar(ctx, 9, "d.jpg", strings.NewReader("d"))
	require.NoError(t, err)
	require.NoError(t, svc.RemoveCarDirectory(9))
	assert.NoDirExists(t, filepath.Join(root, "9"))
	require.NoError(t, svc.RemoveCarDirectory(9))
}

func TestFileService_Thumbnail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestFileService(t, 1<<20, nil)

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for x := 0; x < 100; x++ {
		for y := 0; y < 50; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	publicPath, err := svc.StoreForCar(ctx, 5, "car.png", &buf)
	require.NoError(t, err)

	thumb, info, err := svc.Thumbnail(publicPath, 20)
	require.NoError(t, err)
	decoded, err := jpeg.Decode(thumb)
	require.NoError(t, err)
	require.NoError(t, thumb.Close())
	assert.Equal(t, 20, decoded.Bounds().Dx())
	assert.Equal(t, 10, decoded.Bounds().Dy())

	cached, cachedInfo, err := svc.Thumbnail(publicPath, 20)
	require.NoError(t, err)
	require.NoError(t, cached.Close())
	assert.Equal(t, info.Name(), cachedInfo.Name())

	_, _, err = svc.Thumbnail("/uploads/5/missing.png", 20)
	require.ErrorIs(t, err, model.ErrFileNotFound)

	_, _, err = svc.Thumbnail(publicPath, 4096)
	require.Error(t, err)

	textPath, err := svc.StoreForCar(ctx, 5, "notes.txt", strings.NewReader("not an image"))
	require.NoError(t, err)
	_, _, err = svc.Thumbnail(textPath, 64)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNSUPPORTED_TYPE", apiErr.Code)
}

func TestFileService_StorageFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("open failure is returned", func(t *testing.T) {
		t.Parallel()
		mockStore := new(storeMock)
		mockStore.On("MkdirAll", "temp", fs.FileMode(0o755)).Return(nil)
		mockStore.On("OpenForWrite", mock.AnythingOfType("string")).Return(nil, errors.New("disk full"))

		svc, err := NewFileService(mockStore, "temp", 1024, nil, t.TempDir())
		require.NoError(t, err)

		_, err = svc.StoreTemp(ctx, "a.jpg", strings.NewReader("data"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		mockStore.AssertExpectations(t)
	})

	t.Run("rename failure stops promotion", func(t *testing.T) {
		t.Parallel()
		mockStore := new(storeMock)
		mockStore.On("MkdirAll", "temp", fs.FileMode(0o755)).Return(nil)
		mockStore.On("RootAbs").Return("/srv/uploads")
		mockStore.On("Resolve", "temp/a.jpg").Return("/srv/uploads/temp/a.jpg", nil)
		mockStore.On("Rel", "/srv/uploads/temp/a.jpg").Return("temp/a.jpg", nil)
		mockStore.On("Stat", "temp/a.jpg").Return(&mockFileInfo{name: "a.jpg", size: 4}, nil)
		mockStore.On("Rename", "temp/a.jpg", mock.AnythingOfType("string")).Return(errors.New("cross-device link"))

		svc, err := NewFileService(mockStore, "temp", 1024, nil, t.TempDir())
		require.NoError(t, err)

		promoted, err := svc.Promote(ctx, []string{"/uploads/temp/a.jpg"}, 1)
		require.Error(t, err)
		assert.Empty(t, promoted)
		mockStore.AssertExpectations(t)
	})

	t.Run("rename failure returns earlier moves to temp", func(t *testing.T) {
		t.Parallel()
		mockStore := new(storeMock)
		mockStore.On("MkdirAll", "temp", fs.FileMode(0o755)).Return(nil)
		mockStore.On("RootAbs").Return("/srv/uploads")
		for _, name := range []string{"a.jpg", "b.png"} {
			mockStore.On("Resolve", "temp/"+name).Return("/srv/uploads/temp/"+name, nil)
			mockStore.On("Rel", "/srv/uploads/temp/"+name).Return("temp/"+name, nil)
			mockStore.On("Stat", "temp/"+name).Return(&mockFileInfo{name: name, size: 4}, nil)
		}

		var movedTo string
		mockStore.On("Rename", "temp/a.jpg", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { movedTo = args.String(1) }).
			Return(nil).Once()
		mockStore.On("Rename", "temp/b.png", mock.AnythingOfType("string")).Return(errors.New("cross-device link")).Once()
		mockStore.On("Rename", mock.MatchedBy(func(from string) bool { return from != "" && from == movedTo }), "temp/a.jpg").
			Return(nil).Once()

		svc, err := NewFileService(mockStore, "temp", 1024, nil, t.TempDir())
		require.NoError(t, err)

		promoted, err := svc.Promote(ctx, []string{"/uploads/temp/a.jpg", "/uploads/temp/b.png"}, 7)
		require.Error(t, err)
		assert.Empty(t, promoted)
		assert.True(t, strings.HasPrefix(movedTo, "7/"), movedTo)
		mockStore.AssertExpectations(t)
	})

	t.Run("temp directory setup failure", func(t *testing.T) {
		t.Parallel()
		mockStore := new(storeMock)
		mockStore.On("MkdirAll", "temp", fs.FileMode(0o755)).Return(errors.New("read-only"))

		_, err := NewFileService(mockStore, "temp", 1024, nil, t.TempDir())
		require.Error(t, err)
	})
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name string
	size int64
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return 0o644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }
