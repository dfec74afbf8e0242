package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrOutsideRoot = errors.New("path escapes storage root")
)

// PathValidator maps slash-separated client paths onto absolute paths below
// a fixed root. ".." segments are rejected outright instead of cleaned.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

func (v *PathValidator) ResolvePath(clientPath string) (string, error) {
	normalized := strings.Trim(strings.ReplaceAll(strings.TrimSpace(clientPath), `\`, "/"), "/")
	if normalized == "" {
		return v.rootAbs, nil
	}

	if strings.ContainsFunc(normalized, unicode.IsControl) {
		return "", fmt.Errorf("%w: %q contains control characters", ErrInvalidPath, clientPath)
	}

	if slices.Contains(strings.Split(normalized, "/"), "..") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, clientPath)
	}

	resolved := filepath.Join(v.rootAbs, filepath.FromSlash(normalized))
	if !isWithinRoot(v.rootAbs, resolved) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, clientPath)
	}

	return resolved, nil
}

// RelativePath converts a resolved absolute path back into a slash-separated
// path relative to the root.
func (v *PathValidator) RelativePath(resolved string) (string, error) {
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, abs) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, resolved)
	}

	rel, err := filepath.Rel(v.rootAbs, abs)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}

	return filepath.ToSlash(rel), nil
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	return candidateAbs == rootAbs || strings.HasPrefix(candidateAbs, rootAbs+string(filepath.Separator))
}
