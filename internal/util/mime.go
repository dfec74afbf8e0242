package util

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
)

const sniffLen = 512

// SniffMIME detects the content type from the first bytes of r. The
// returned reader replays those bytes followed by the rest of r.
func SniffMIME(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}

	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func DetectMIMEFromFile(file *os.File) (string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	buffer := make([]byte, sniffLen)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer[:n]), nil
}

// MIMEAllowList matches detected content types against configured entries.
// Entries may be exact ("image/png") or a family wildcard ("image/*"). An
// empty list allows everything.
type MIMEAllowList map[string]struct{}

func NewMIMEAllowList(types []string) MIMEAllowList {
	allowed := make(MIMEAllowList, len(types))
	for _, mimeType := range types {
		trimmed := strings.ToLower(strings.TrimSpace(mimeType))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}
	return allowed
}

func (l MIMEAllowList) Allows(mimeType string) bool {
	if len(l) == 0 {
		return true
	}

	base := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = strings.TrimSpace(base[:idx])
	}

	if _, ok := l[base]; ok {
		return true
	}

	if idx := strings.Index(base, "/"); idx > 0 {
		_, ok := l[base[:idx]+"/*"]
		return ok
	}

	return false
}

func IsImageMIME(mimeType string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(cleaned, "image/")
}

// IsThumbnailMIME reports whether a decoder is registered for the type.
func IsThumbnailMIME(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}

func IsThumbnailExtension(extension string) bool {
	switch strings.ToLower(strings.TrimSpace(extension)) {
	case ".jpg", ".jpeg", ".jpe", ".jfif", ".pjpeg", ".pjp", ".png", ".gif", ".webp", ".bmp", ".dib", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
