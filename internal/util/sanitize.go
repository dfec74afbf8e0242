package util

import (
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode"

	"baz-car-admin/pkg/apierror"
)

const (
	maxUploadNameRunes = 255
	maxExtensionLength = 16
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"|?*]`)

// CleanUploadName reduces a client supplied file name to its last path
// element with control, invisible and reserved characters removed.
func CleanUploadName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return "", apierror.New("INVALID_FILENAME", "filename is empty", name, http.StatusBadRequest)
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || isInvisible(r) {
			return -1
		}
		return r
	}, base)
	cleaned = strings.TrimSpace(invalidFilenameChars.ReplaceAllString(cleaned, "_"))

	if cleaned == "" {
		return "", apierror.New("INVALID_FILENAME", "filename is invalid after sanitization", name, http.StatusBadRequest)
	}

	if runes := []rune(cleaned); len(runes) > maxUploadNameRunes {
		cleaned = string(runes[:maxUploadNameRunes])
	}

	return cleaned, nil
}

// isInvisible reports zero-width and other format characters.
func isInvisible(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Co, r) || unicode.Is(unicode.Cs, r)
}

// UploadExtension returns the extension of a client file name that is safe
// to reuse on a generated name, or "" when there is none.
func UploadExtension(name string) string {
	cleaned, err := CleanUploadName(name)
	if err != nil {
		return ""
	}

	ext := path.Ext(cleaned)
	if ext == cleaned || len(ext) < 2 || len(ext) > maxExtensionLength {
		return ""
	}

	for _, r := range ext[1:] {
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
			return ""
		}
	}

	return ext
}
