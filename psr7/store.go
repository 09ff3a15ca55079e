package psr7

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Store interface
// -----------------------------------------------------------------------------

// Store holds message bodies by path and hands them out as streams.
//
// Implementations may target filesystems, S3, or other object stores.
type Store interface {
	// Put writes a body to the given path. Bodies are immutable: writing an
	// existing path returns ErrPathExists.
	Put(ctx context.Context, path string, r io.Reader) error

	// Open returns a stream over the whole body. The caller must close it.
	Open(ctx context.Context, path string) (Stream, error)

	// OpenRange returns a window over [offset, offset+length) of the body.
	// Length may be Unbounded. Closing the window releases the body.
	OpenRange(ctx context.Context, path string, offset, length int64) (Stream, error)

	// Exists checks whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the path if it exists.
	Delete(ctx context.Context, path string) error
}

// Store error sentinels.
var (
	// ErrNotFound indicates a requested body does not exist.
	ErrNotFound = errNotFound{}

	// ErrPathExists indicates an attempt to write to an existing path.
	ErrPathExists = errPathExists{}

	// ErrInvalidPath indicates a path that would escape the storage root, or
	// a range with a negative or overflowing offset or length.
	ErrInvalidPath = errors.New("invalid path: escapes storage root")
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errPathExists struct{}

func (errPathExists) Error() string { return "path exists" }

// ValidateRange checks the arguments of OpenRange and ReadRange.
func ValidateRange(offset, length int64) error {
	if offset < 0 || length < Unbounded {
		return ErrInvalidPath
	}
	if length > 0 && offset > math.MaxInt64-length {
		return ErrInvalidPath
	}
	return nil
}

// ReadRange reads [offset, offset+length) of the body at path. A range that
// extends past the end returns the available bytes; one that starts past the
// end returns an empty slice.
func ReadRange(ctx context.Context, store Store, path string, offset, length int64) ([]byte, error) {
	w, err := store.OpenRange(ctx, path, offset, length)
	if err != nil {
		return nil, err
	}
	defer func() { _ = w.Close() }()

	data, err := w.Contents()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ownedWindow is a window that owns its source: closing it closes the body.
type ownedWindow struct {
	*LimitStream
	owner io.Closer
}

// NewOwnedWindow returns a window over s that closes s when closed. It is meant
// for store implementations that open a body only to serve one range.
func NewOwnedWindow(s Stream, offset, length int64) (Stream, error) {
	w, err := NewLimitStream(s, offset, length)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return &ownedWindow{LimitStream: w, owner: s}, nil
}

func (o *ownedWindow) Close() error {
	return o.owner.Close()
}

// -----------------------------------------------------------------------------
// Filesystem Store
// -----------------------------------------------------------------------------

// fsStore implements Store using the local filesystem.
type fsStore struct {
	root string
}

// NewFS creates a filesystem-backed Store rooted at the given directory.
// The directory must exist.
func NewFS(root string) (Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrNotExist
	}
	return &fsStore{root: root}, nil
}

func (f *fsStore) Put(_ context.Context, path string, r io.Reader) error {
	fullPath, err := f.safePathForFile(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrPathExists
		}
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = io.Copy(file, r)
	return err
}

func (f *fsStore) Open(_ context.Context, path string) (Stream, error) {
	fullPath, err := f.safePathForFile(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return NewStream(file), nil
}

func (f *fsStore) OpenRange(ctx context.Context, path string, offset, length int64) (Stream, error) {
	if err := ValidateRange(offset, length); err != nil {
		return nil, err
	}
	s, err := f.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewOwnedWindow(s, offset, length)
}

func (f *fsStore) Exists(_ context.Context, path string) (bool, error) {
	fullPath, err := f.safePathForFile(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *fsStore) List(_ context.Context, prefix string) ([]string, error) {
	searchPath, err := f.safePathForPrefix(prefix)
	if err != nil {
		return nil, err
	}
	var paths []string

	err = filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (f *fsStore) Delete(_ context.Context, path string) error {
	fullPath, err := f.safePathForFile(path)
	if err != nil {
		return err
	}
	err = os.Remove(fullPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *fsStore) safePathForFile(path string) (string, error) {
	cleaned, ok := normalizePathForFile(path)
	if !ok {
		return "", ErrInvalidPath
	}
	return filepath.Join(f.root, filepath.FromSlash(cleaned)), nil
}

func (f *fsStore) safePathForPrefix(path string) (string, error) {
	cleaned, ok := normalizePathForPrefix(path)
	if !ok {
		return "", ErrInvalidPath
	}
	if cleaned == "" {
		return f.root, nil
	}
	return filepath.Join(f.root, filepath.FromSlash(cleaned)), nil
}

// -----------------------------------------------------------------------------
// Memory Store
// -----------------------------------------------------------------------------

// memoryStore implements Store using an in-memory map.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an in-memory Store. It is safe for concurrent use; the
// streams it returns are not.
func NewMemory() Store {
	return &memoryStore{
		data: make(map[string][]byte),
	}
}

func (m *memoryStore) Put(_ context.Context, path string, r io.Reader) error {
	normalized, valid := normalizePathForFile(path)
	if !valid {
		return ErrInvalidPath
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[normalized]; exists {
		return ErrPathExists
	}
	m.data[normalized] = data
	return nil
}

func (m *memoryStore) Open(_ context.Context, path string) (Stream, error) {
	normalized, valid := normalizePathForFile(path)
	if !valid {
		return nil, ErrInvalidPath
	}

	m.mu.RLock()
	data, exists := m.data[normalized]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	// Stored slices are never mutated, so readers can share them.
	return NewStream(bytes.NewReader(data)), nil
}

func (m *memoryStore) OpenRange(ctx context.Context, path string, offset, length int64) (Stream, error) {
	if err := ValidateRange(offset, length); err != nil {
		return nil, err
	}
	s, err := m.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewOwnedWindow(s, offset, length)
}

func (m *memoryStore) Exists(_ context.Context, path string) (bool, error) {
	normalized, valid := normalizePathForFile(path)
	if !valid {
		return false, ErrInvalidPath
	}

	m.mu.RLock()
	_, exists := m.data[normalized]
	m.mu.RUnlock()

	return exists, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	normalized, valid := normalizePathForPrefix(prefix)
	if !valid {
		return nil, ErrInvalidPath
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var paths []string
	for path := range m.data {
		if strings.HasPrefix(path, normalized) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (m *memoryStore) Delete(_ context.Context, path string) error {
	normalized, valid := normalizePathForFile(path)
	if !valid {
		return ErrInvalidPath
	}

	m.mu.Lock()
	delete(m.data, normalized)
	m.mu.Unlock()

	return nil
}

// -----------------------------------------------------------------------------
// Path helpers
// -----------------------------------------------------------------------------

func normalizePathForFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	cleaned = strings.TrimPrefix(cleaned, "/")

	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func normalizePathForPrefix(path string) (string, bool) {
	if path == "" {
		return "", true
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	cleaned = strings.TrimPrefix(cleaned, "/")

	if cleaned == "." {
		return "", true
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
