package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tinoosan/contentd/internal/data"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b", "c")
		s, err := Open(dir, true)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		_ = s.Close()
	})

	t.Run("fails when missing and createIfMissing is false", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing"), false)
		if !errors.Is(err, data.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
	})

	t.Run("reopens an existing store", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		s, err := Open(dir, true)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := s.Put("k", []byte("v")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		_ = s.Close()

		s, err = Open(dir, false)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		defer s.Close()
		got, err := s.Get("k")
		if err != nil || string(got) != "v" {
			t.Fatalf("Get after reopen = %q, %v", got, err)
		}
	})
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	t.Run("round trip", func(t *testing.T) {
		if err := s.Put("key", []byte("value")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get("key")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "value" {
			t.Fatalf("Get = %q, want %q", got, "value")
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		if err := s.Put("key", []byte("second")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, _ := s.Get("key")
		if string(got) != "second" {
			t.Fatalf("Get = %q, want %q", got, "second")
		}
	})

	t.Run("get missing key returns ErrNotFound", func(t *testing.T) {
		if _, err := s.Get("nope"); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete then get returns ErrNotFound", func(t *testing.T) {
		if err := s.Delete("key"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get("key"); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete missing key is a no-op", func(t *testing.T) {
		if err := s.Delete("never-existed"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})
}

func TestEmptyKey(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("", []byte("v")); !errors.Is(err, data.ErrEmptyKey) {
		t.Fatalf("Put empty key: expected ErrEmptyKey, got %v", err)
	}
	if _, err := s.Get(""); !errors.Is(err, data.ErrEmptyKey) {
		t.Fatalf("Get empty key: expected ErrEmptyKey, got %v", err)
	}
	if err := s.Delete(""); !errors.Is(err, data.ErrEmptyKey) {
		t.Fatalf("Delete empty key: expected ErrEmptyKey, got %v", err)
	}
}

func TestOrdering(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"b2", "a1", "c3", "a2", "b1"} {
		if err := s.Put(k, []byte(k)); err != nil {
			t.Fatalf("Put %q: %v", k, err)
		}
	}

	t.Run("seek yields ascending byte order from key", func(t *testing.T) {
		entries, err := s.Seek("b")
		if err != nil {
			t.Fatalf("Seek: %v", err)
		}
		want := []string{"b1", "b2", "c3"}
		if len(entries) != len(want) {
			t.Fatalf("Seek returned %d entries, want %d", len(entries), len(want))
		}
		for i, e := range entries {
			if e.Key != want[i] {
				t.Fatalf("entry %d = %q, want %q", i, e.Key, want[i])
			}
		}
	})

	t.Run("seek empty key scans everything", func(t *testing.T) {
		entries, err := s.Seek("")
		if err != nil {
			t.Fatalf("Seek: %v", err)
		}
		if len(entries) != 5 {
			t.Fatalf("full scan returned %d entries, want 5", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i-1].Key >= entries[i].Key {
				t.Fatalf("entries out of order: %q before %q", entries[i-1].Key, entries[i].Key)
			}
		}
	})

	t.Run("last returns the maximum key", func(t *testing.T) {
		k, v, err := s.Last()
		if err != nil {
			t.Fatalf("Last: %v", err)
		}
		if k != "c3" || string(v) != "c3" {
			t.Fatalf("Last = %q/%q, want c3/c3", k, v)
		}
	})
}

func TestEmptyStore(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.Last(); !errors.Is(err, data.ErrEmptyStore) {
		t.Fatalf("Last on empty store: expected ErrEmptyStore, got %v", err)
	}
	entries, err := s.Seek("")
	if err != nil {
		t.Fatalf("Seek on empty store: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Seek on empty store returned %d entries", len(entries))
	}
}

func TestDeleteAll(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"x", "y", "z"} {
		if err := s.Put(k, []byte(k)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := s.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if _, _, err := s.Last(); !errors.Is(err, data.ErrEmptyStore) {
		t.Fatalf("expected empty store after DeleteAll, got %v", err)
	}
	// Store stays usable after a clear.
	if err := s.Put("x", []byte("again")); err != nil {
		t.Fatalf("Put after DeleteAll: %v", err)
	}
}
