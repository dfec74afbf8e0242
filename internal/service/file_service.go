package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/storage"
	"baz-car-admin/internal/util"
	"baz-car-admin/pkg/apierror"
)

// PublicPrefix is the URL prefix uploaded files are served under.
const PublicPrefix = "/uploads/"

const (
	defaultThumbnailSize = 256
	minThumbnailSize     = 16
	maxThumbnailSize     = 1024
)

// FileService stores car media below the upload root. Files land either in
// a per-car directory or in the shared temp directory and are addressed by
// their public path.
type FileService struct {
	store         storage.Storage
	tempDir       string
	maxFileSize   int64
	allowed       util.MIMEAllowList
	thumbnailRoot string
}

func NewFileService(store storage.Storage, tempDir string, maxFileSize int64, allowedMIMETypes []string, thumbnailRoot string) (*FileService, error) {
	tempDir = strings.Trim(path.Clean("/"+filepath.ToSlash(tempDir)), "/")
	if tempDir == "" {
		return nil, fmt.Errorf("temp directory must be a subdirectory of the upload root")
	}

	if strings.TrimSpace(thumbnailRoot) == "" {
		thumbnailRoot = filepath.Join("state", "thumbnails")
	}

	if err := store.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp upload directory: %w", err)
	}

	return &FileService{
		store:         store,
		tempDir:       tempDir,
		maxFileSize:   maxFileSize,
		allowed:       util.NewMIMEAllowList(allowedMIMETypes),
		thumbnailRoot: thumbnailRoot,
	}, nil
}

func (s *FileService) StoreForCar(ctx context.Context, carID int64, originalName string, reader io.Reader) (string, error) {
	return s.Store(ctx, carDir(carID), originalName, reader)
}

func (s *FileService) StoreTemp(ctx context.Context, originalName string, reader io.Reader) (string, error) {
	return s.Store(ctx, s.tempDir, originalName, reader)
}

// Store writes reader to dir under a generated name and returns its public
// path. Content over the size ceiling is rejected and nothing is left on
// disk.
func (s *FileService) Store(_ context.Context, dir string, originalName string, reader io.Reader) (string, error) {
	mimeType, content, err := util.SniffMIME(reader)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	if !s.allowed.Allows(mimeType) {
		return "", apierror.New("UNSUPPORTED_TYPE", "file MIME type is not allowed", mimeType, http.StatusUnsupportedMediaType)
	}

	target := path.Join(dir, uuid.NewString()+util.UploadExtension(originalName))
	writer, err := s.store.OpenForWrite(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	written, copyErr := io.CopyBuffer(writer, io.LimitReader(content, s.maxFileSize+1), make([]byte, 32*1024))
	closeErr := writer.Close()

	switch {
	case copyErr != nil:
		s.discard(target)
		return "", fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		s.discard(target)
		return "", fmt.Errorf("close upload: %w", closeErr)
	case written > s.maxFileSize:
		s.discard(target)
		return "", fmt.Errorf("%w: limit is %d bytes", model.ErrFileTooLarge, s.maxFileSize)
	}

	return PublicPrefix + target, nil
}

// IsTempPath reports whether publicPath points into the temp directory.
func (s *FileService) IsTempPath(publicPath string) bool {
	rel, ok := s.relFromPublic(publicPath)
	return ok && strings.HasPrefix(rel, s.tempDir+"/")
}

// Promote moves temp uploads into the car's directory under fresh names.
// Paths that are missing, outside the temp directory or invalid are
// dropped; the result holds the new public paths in input order. A failed
// move puts the files already moved back into the temp directory, so either
// every surviving path is promoted or none is.
func (s *FileService) Promote(ctx context.Context, tempPublicPaths []string, carID int64) ([]string, error) {
	promotion, err := s.PromoteForCar(ctx, tempPublicPaths, carID)
	if err != nil {
		return nil, err
	}
	return promotion.Paths, nil
}

type move struct {
	from string
	to   string
}

// Promotion is the outcome of PromoteForCar. Undo returns the files to the
// temp directory when the caller fails to record Paths.
type Promotion struct {
	Paths []string

	moves []move
	store storage.Storage
}

func (p Promotion) Undo() {
	for i := len(p.moves) - 1; i >= 0; i-- {
		m := p.moves[i]
		if err := p.store.Rename(m.to, m.from); err != nil {
			slog.Warn("failed to return promoted upload to temp", "from", m.to, "to", m.from, "error", err)
		}
	}
}

func (s *FileService) PromoteForCar(_ context.Context, tempPublicPaths []string, carID int64) (Promotion, error) {
	promotion := Promotion{Paths: make([]string, 0, len(tempPublicPaths)), store: s.store}
	dir := carDir(carID)

	for _, publicPath := range tempPublicPaths {
		rel, ok := s.relFromPublic(publicPath)
		if !ok || !strings.HasPrefix(rel, s.tempDir+"/") {
			continue
		}

		info, err := s.store.Stat(rel)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		target := path.Join(dir, uuid.NewString()+util.UploadExtension(path.Base(rel)))
		if err := s.store.Rename(rel, target); err != nil {
			promotion.Undo()
			return Promotion{store: s.store}, fmt.Errorf("promote %q: %w", publicPath, err)
		}
		promotion.moves = append(promotion.moves, move{from: rel, to: target})
		promotion.Paths = append(promotion.Paths, PublicPrefix+target)
	}

	return promotion, nil
}

// DeleteByPublicPaths removes the listed files and returns how many were
// actually deleted. Missing files and invalid paths are skipped.
func (s *FileService) DeleteByPublicPaths(_ context.Context, publicPaths []string) (int, error) {
	deleted := 0
	for _, publicPath := range publicPaths {
		rel, ok := s.relFromPublic(publicPath)
		if !ok {
			continue
		}

		info, err := s.store.Stat(rel)
		if err != nil || info.IsDir() {
			continue
		}

		if err := s.store.Remove(rel); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return deleted, fmt.Errorf("delete %q: %w", publicPath, err)
		}
		deleted++
	}

	return deleted, nil
}

// CleanupTemp deletes every regular file in the temp directory.
func (s *FileService) CleanupTemp(_ context.Context) (int, error) {
	entries, err := s.store.ReadDir(s.tempDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list temp uploads: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := s.store.Remove(path.Join(s.tempDir, entry.Name())); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return deleted, fmt.Errorf("delete temp upload %q: %w", entry.Name(), err)
		}
		deleted++
	}

	return deleted, nil
}

func (s *FileService) RemoveCarDirectory(carID int64) error {
	return s.store.RemoveAll(carDir(carID))
}

// Thumbnail returns a cached JPEG rendition of an uploaded image whose
// longer side is at most size pixels.
func (s *FileService) Thumbnail(publicPath string, size int) (*os.File, os.FileInfo, error) {
	if size <= 0 {
		size = defaultThumbnailSize
	}
	if size < minThumbnailSize || size > maxThumbnailSize {
		return nil, nil, apierror.New("BAD_REQUEST", "thumbnail size is out of range",
			fmt.Sprintf("%d..%d", minThumbnailSize, maxThumbnailSize), http.StatusBadRequest)
	}

	rel, ok := s.relFromPublic(publicPath)
	if !ok {
		return nil, nil, model.ErrFileNotFound
	}

	resolved, err := s.store.Resolve(rel)
	if err != nil {
		return nil, nil, model.ErrFileNotFound
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, model.ErrFileNotFound
		}
		return nil, nil, err
	}

	if info.IsDir() {
		return nil, nil, model.ErrFileNotFound
	}

	if err := os.MkdirAll(s.thumbnailRoot, 0o755); err != nil {
		return nil, nil, err
	}

	thumbPath := s.thumbnailPath(resolved, size)
	if thumbInfo, err := os.Stat(thumbPath); err == nil && !thumbInfo.ModTime().Before(info.ModTime()) {
		if thumbFile, openErr := os.Open(thumbPath); openErr == nil {
			return thumbFile, thumbInfo, nil
		}
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	mimeType, err := util.DetectMIMEFromFile(file)
	if err != nil {
		return nil, nil, err
	}
	if !util.IsThumbnailMIME(mimeType) && !util.IsThumbnailExtension(filepath.Ext(resolved)) {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "thumbnails are only available for images", mimeType, http.StatusUnsupportedMediaType)
	}

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "invalid image dimensions", publicPath, http.StatusUnsupportedMediaType)
	}

	return s.scaleAndSaveThumbnail(src, bounds, thumbPath, size, info)
}

// scaleAndSaveThumbnail scales a decoded image to the given size and saves it
// as a JPEG file at thumbPath. It returns the opened thumbnail file and its info.
func (s *FileService) scaleAndSaveThumbnail(src image.Image, bounds image.Rectangle, thumbPath string, size int, info os.FileInfo) (*os.File, os.FileInfo, error) {
	width := bounds.Dx()
	height := bounds.Dy()

	scale := math.Min(1, float64(size)/float64(max(width, height)))
	targetWidth := max(1, int(math.Round(float64(width)*scale)))
	targetHeight := max(1, int(math.Round(float64(height)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	thumbWriter, err := os.OpenFile(thumbPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}

	encodeErr := jpeg.Encode(thumbWriter, dst, &jpeg.Options{Quality: 90})
	closeErr := thumbWriter.Close()
	if encodeErr != nil {
		return nil, nil, encodeErr
	}
	if closeErr != nil {
		return nil, nil, closeErr
	}

	_ = os.Chtimes(thumbPath, time.Now().UTC(), info.ModTime())

	thumbFile, err := os.Open(thumbPath)
	if err != nil {
		return nil, nil, err
	}

	thumbInfo, err := thumbFile.Stat()
	if err != nil {
		_ = thumbFile.Close()
		return nil, nil, err
	}

	return thumbFile, thumbInfo, nil
}

func (s *FileService) thumbnailPath(resolvedPath string, size int) string {
	hash := sha256.Sum256([]byte(resolvedPath + "|" + strconv.Itoa(size)))
	return filepath.Join(s.thumbnailRoot, hex.EncodeToString(hash[:])+".jpg")
}

// relFromPublic maps "/uploads/<rel>" to <rel> after validating it against
// the storage root.
func (s *FileService) relFromPublic(publicPath string) (string, bool) {
	rel, ok := strings.CutPrefix(strings.TrimSpace(publicPath), PublicPrefix)
	if !ok {
		return "", false
	}

	resolved, err := s.store.Resolve(rel)
	if err != nil || resolved == s.store.RootAbs() {
		return "", false
	}

	rel, err = s.store.Rel(resolved)
	if err != nil {
		return "", false
	}
	return rel, true
}

func (s *FileService) discard(target string) {
	if err := s.store.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove rejected upload", "path", target, "error", err)
	}
}

func carDir(carID int64) string {
	return strconv.FormatInt(carID, 10)
}
