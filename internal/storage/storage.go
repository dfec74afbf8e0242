package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage is a filesystem rooted at a single directory. Every client path
// is resolved through a PathValidator before it touches the disk.
type Storage interface {
	RootAbs() string
	Resolve(clientPath string) (string, error)
	Rel(resolved string) (string, error)
	MkdirAll(clientPath string, perm fs.FileMode) error
	Stat(clientPath string) (fs.FileInfo, error)
	ReadDir(clientPath string) ([]fs.DirEntry, error)
	Remove(clientPath string) error
	RemoveAll(clientPath string) error
	Rename(oldPath string, newPath string) error
	OpenForRead(clientPath string) (*os.File, error)
	OpenForWrite(clientPath string) (*os.File, error)
}

var _ Storage = (*Local)(nil)

type Local struct {
	validator *PathValidator
}

func New(root string) (*Local, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Local{validator: validator}, nil
}

func (s *Local) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Local) Resolve(clientPath string) (string, error) {
	return s.validator.ResolvePath(clientPath)
}

func (s *Local) Rel(resolved string) (string, error) {
	return s.validator.RelativePath(resolved)
}

func (s *Local) MkdirAll(clientPath string, perm fs.FileMode) error {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(resolved, perm); err != nil {
		return fmt.Errorf("mkdir %q: %w", clientPath, err)
	}

	return nil
}

func (s *Local) Stat(clientPath string) (fs.FileInfo, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	return os.Stat(resolved)
}

func (s *Local) ReadDir(clientPath string) ([]fs.DirEntry, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	return os.ReadDir(resolved)
}

// Remove deletes a single file. A missing file is reported with an error
// satisfying errors.Is(err, fs.ErrNotExist).
func (s *Local) Remove(clientPath string) error {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return err
	}

	if resolved == s.RootAbs() {
		return fmt.Errorf("refusing to remove storage root")
	}

	if err := os.Remove(resolved); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("remove %q: %w", clientPath, err)
	}

	return nil
}

func (s *Local) RemoveAll(clientPath string) error {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return err
	}

	if resolved == s.RootAbs() {
		return fmt.Errorf("refusing to remove storage root")
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", clientPath, err)
	}

	return nil
}

func (s *Local) Rename(oldPath string, newPath string) error {
	oldResolved, err := s.Resolve(oldPath)
	if err != nil {
		return err
	}

	newResolved, err := s.Resolve(newPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(newResolved), 0o755); err != nil {
		return fmt.Errorf("prepare destination %q: %w", newPath, err)
	}

	if err := os.Rename(oldResolved, newResolved); err != nil {
		return fmt.Errorf("rename %q to %q: %w", oldPath, newPath, err)
	}

	return nil
}

func (s *Local) OpenForRead(clientPath string) (*os.File, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	return os.Open(resolved)
}

// OpenForWrite creates the file exclusively. Names are generated by callers,
// so an existing file signals a bug rather than an overwrite request.
func (s *Local) OpenForWrite(clientPath string) (*os.File, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}

	return os.OpenFile(resolved, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}
