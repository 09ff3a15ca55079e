package psr7

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"testing"
)

// storeFactories lists every Store implementation in this package.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"fs": func() Store {
			s, err := NewFS(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
		"memory": NewMemory,
	}
}

func putString(t *testing.T, store Store, path, content string) {
	t.Helper()
	if err := store.Put(t.Context(), path, bytes.NewReader([]byte(content))); err != nil {
		t.Fatalf("Put(%q) failed: %v", path, err)
	}
}

// -----------------------------------------------------------------------------
// Immutability
// -----------------------------------------------------------------------------

func TestStore_Put_ErrPathExists(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			putString(t, store, "test/file.txt", "hello")

			err := store.Put(t.Context(), "test/file.txt", bytes.NewReader([]byte("world")))
			if !errors.Is(err, ErrPathExists) {
				t.Errorf("expected ErrPathExists, got: %v", err)
			}
		})
	}
}

func TestStore_InvalidPath(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			ctx := t.Context()

			for _, path := range []string{"", ".", "..", "../escape.txt", "a/../../b"} {
				if err := store.Put(ctx, path, bytes.NewReader(nil)); !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Put(%q): expected ErrInvalidPath, got: %v", path, err)
				}
				if _, err := store.Open(ctx, path); !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Open(%q): expected ErrInvalidPath, got: %v", path, err)
				}
			}
			if _, err := store.List(ctx, "../up"); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("List: expected ErrInvalidPath, got: %v", err)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Open
// -----------------------------------------------------------------------------

func TestStore_Open(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			putString(t, store, "body.txt", "hello world")

			s, err := store.Open(t.Context(), "body.txt")
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = s.Close() }()

			if !s.Seekable() {
				t.Error("expected stored body to be seekable")
			}
			size, ok := s.Size()
			if !ok || size != 11 {
				t.Errorf("Size() = (%d, %v), want (11, true)", size, ok)
			}

			w := mustWindow(t, s, 6, Unbounded)
			if got := w.String(); got != "world" {
				t.Errorf("window String() = %q, want %q", got, "world")
			}
		})
	}
}

func TestStore_Open_NotFound(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := newStore().Open(t.Context(), "missing.txt")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got: %v", err)
			}
		})
	}
}

func TestStore_OpenRange(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			putString(t, store, "body.txt", "0123456789")

			w, err := store.OpenRange(t.Context(), "body.txt", 2, 5)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = w.Close() }()

			if got := readString(t, w, 3); got != "234" {
				t.Errorf("Read = %q, want %q", got, "234")
			}
			if _, err := w.Seek(100, io.SeekStart); err != nil {
				t.Fatal(err)
			}
			if got := mustTell(t, w); got != 5 {
				t.Errorf("Tell() after clamped seek = %d, want 5", got)
			}
			if got := w.String(); got != "23456" {
				t.Errorf("String() = %q, want %q", got, "23456")
			}
		})
	}
}

func TestStore_OpenRange_CloseReleasesBody(t *testing.T) {
	store := NewMemory()
	putString(t, store, "body.txt", "0123456789")

	w, err := store.OpenRange(t.Context(), "body.txt", 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close: expected ErrClosed, got: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Range reads
// -----------------------------------------------------------------------------

func TestStore_ReadRange(t *testing.T) {
	tests := []struct {
		name    string
		content string
		offset  int64
		length  int64
		want    string
	}{
		{"middle", "hello world", 6, 5, "world"},
		{"beyond EOF", "hello", 3, 100, "lo"},
		{"offset beyond EOF", "hello", 100, 10, ""},
		{"zero length", "hello", 1, 0, ""},
		{"unbounded", "hello", 1, Unbounded, "ello"},
	}

	for name, newStore := range storeFactories(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				store := newStore()
				putString(t, store, "test.txt", tt.content)

				data, err := ReadRange(t.Context(), store, "test.txt", tt.offset, tt.length)
				if err != nil {
					t.Fatalf("ReadRange failed: %v", err)
				}
				if data == nil {
					t.Fatal("expected non-nil slice")
				}
				if string(data) != tt.want {
					t.Errorf("ReadRange = %q, want %q", data, tt.want)
				}
			})
		}
	}
}

func TestStore_ReadRange_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		offset int64
		length int64
		want   error
	}{
		{"not found", "nonexistent.txt", 0, 10, ErrNotFound},
		{"negative offset", "test.txt", -1, 10, ErrInvalidPath},
		{"negative length", "test.txt", 0, -2, ErrInvalidPath},
		{"offset plus length overflow", "test.txt", math.MaxInt64 - 10, 20, ErrInvalidPath},
	}

	for name, newStore := range storeFactories(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				_, err := ReadRange(context.Background(), newStore(), tt.path, tt.offset, tt.length)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got: %v", tt.want, err)
				}
			})
		}
	}
}

// -----------------------------------------------------------------------------
// Exists, List, Delete
// -----------------------------------------------------------------------------

func TestStore_ExistsListDelete(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			ctx := t.Context()
			putString(t, store, "a/one.txt", "1")
			putString(t, store, "a/two.txt", "2")
			putString(t, store, "b/three.txt", "3")

			ok, err := store.Exists(ctx, "a/one.txt")
			if err != nil || !ok {
				t.Errorf("Exists(a/one.txt) = (%v, %v), want (true, nil)", ok, err)
			}

			paths, err := store.List(ctx, "a")
			if err != nil {
				t.Fatal(err)
			}
			sort.Strings(paths)
			if len(paths) != 2 || paths[0] != "a/one.txt" || paths[1] != "a/two.txt" {
				t.Errorf("List(a) = %v", paths)
			}

			all, err := store.List(ctx, "")
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Errorf("List(\"\") returned %d paths, want 3", len(all))
			}

			if err := store.Delete(ctx, "a/one.txt"); err != nil {
				t.Fatal(err)
			}
			if err := store.Delete(ctx, "a/one.txt"); err != nil {
				t.Errorf("second Delete returned %v, want nil", err)
			}
			ok, err = store.Exists(ctx, "a/one.txt")
			if err != nil || ok {
				t.Errorf("Exists after Delete = (%v, %v), want (false, nil)", ok, err)
			}
		})
	}
}

func TestStore_List_MissingPrefix(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			paths, err := newStore().List(t.Context(), "nothing/here")
			if err != nil {
				t.Fatal(err)
			}
			if len(paths) != 0 {
				t.Errorf("List = %v, want empty", paths)
			}
		})
	}
}

func TestNewFS_RequiresDirectory(t *testing.T) {
	if _, err := NewFS(t.TempDir() + "/missing"); err == nil {
		t.Error("expected error for missing root")
	}
}
