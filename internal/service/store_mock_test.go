package service

import (
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"

	"baz-car-admin/internal/storage"
)

var _ storage.Storage = (*storeMock)(nil)

// storeMock lets tests inject filesystem failures that are impractical to
// reproduce on a real disk.
type storeMock struct {
	mock.Mock
}

// typed returns the i-th return value as T, or T's zero value when the
// expectation returned nil.
func typed[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (m *storeMock) RootAbs() string { return m.Called().String(0) }

func (m *storeMock) Resolve(p string) (string, error) {
	args := m.Called(p)
	return args.String(0), args.Error(1)
}

func (m *storeMock) Rel(resolved string) (string, error) {
	args := m.Called(resolved)
	return args.String(0), args.Error(1)
}

func (m *storeMock) MkdirAll(p string, perm fs.FileMode) error { return m.Called(p, perm).Error(0) }

func (m *storeMock) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	return typed[fs.FileInfo](args, 0), args.Error(1)
}

func (m *storeMock) ReadDir(p string) ([]fs.DirEntry, error) {
	args := m.Called(p)
	return typed[[]fs.DirEntry](args, 0), args.Error(1)
}

func (m *storeMock) Remove(p string) error    { return m.Called(p).Error(0) }
func (m *storeMock) RemoveAll(p string) error { return m.Called(p).Error(0) }

func (m *storeMock) Rename(from, to string) error { return m.Called(from, to).Error(0) }

func (m *storeMock) OpenForRead(p string) (*os.File, error) {
	args := m.Called(p)
	return typed[*os.File](args, 0), args.Error(1)
}

func (m *storeMock) OpenForWrite(p string) (*os.File, error) {
	args := m.Called(p)
	return typed[*os.File](args, 0), args.Error(1)
}
