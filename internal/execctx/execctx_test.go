package execctx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinoosan/contentd/internal/data"
)

func TestResolve(t *testing.T) {
	t.Run("creates the working folder tree", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "source-out")
		env, err := Resolve(data.SourceConfig{"outputFolder": out})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer env.Close()

		for _, dir := range []string{env.OutputFolder, env.DownloadsFolder, env.ContentsFolder} {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				t.Fatalf("missing folder %s: %v", dir, err)
			}
		}
	})

	t.Run("removes stale artifacts from a previous run", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "source-out")
		if err := os.MkdirAll(filepath.Join(out, "contents"), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		stale := filepath.Join(out, "contents", "old-feed.json")
		if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		env, err := Resolve(data.SourceConfig{"outputFolder": out})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer env.Close()

		if _, err := os.Stat(stale); !os.IsNotExist(err) {
			t.Fatalf("stale artifact survived resolution: %v", err)
		}
	})

	t.Run("falls back to the generic output folder", func(t *testing.T) {
		orig := GenericOutputFolder
		GenericOutputFolder = filepath.Join(t.TempDir(), "generic")
		defer func() { GenericOutputFolder = orig }()

		env, err := Resolve(data.SourceConfig{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer env.Close()

		if env.OutputFolder != GenericOutputFolder {
			t.Fatalf("output = %s, want %s", env.OutputFolder, GenericOutputFolder)
		}
	})

	t.Run("opens the state store when databasePath is set", func(t *testing.T) {
		env, err := Resolve(data.SourceConfig{
			"outputFolder": filepath.Join(t.TempDir(), "out"),
			"databasePath": filepath.Join(t.TempDir(), "db"),
		})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer env.Close()

		if env.Store == nil {
			t.Fatalf("store not opened")
		}
		if err := env.Store.Put("k", []byte("v")); err != nil {
			t.Fatalf("store unusable: %v", err)
		}
	})

	t.Run("createDatabase false fails on a missing store", func(t *testing.T) {
		_, err := Resolve(data.SourceConfig{
			"outputFolder":   filepath.Join(t.TempDir(), "out"),
			"databasePath":   filepath.Join(t.TempDir(), "nope"),
			"createDatabase": false,
		})
		if !errors.Is(err, data.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
	})

	t.Run("seeds the initial offset on a fresh store", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "db")
		env, err := Resolve(data.SourceConfig{
			"outputFolder":  filepath.Join(t.TempDir(), "out"),
			"databasePath":  dbPath,
			"initialOffset": "1000",
		})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer env.Close()

		v, err := env.Store.Get(data.KeyLastOffset)
		if err != nil {
			t.Fatalf("offset not seeded: %v", err)
		}
		if string(v) != "1000" {
			t.Fatalf("offset = %s, want 1000", v)
		}
	})

	t.Run("does not overwrite an existing offset", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "db")
		out := filepath.Join(t.TempDir(), "out")

		env, err := Resolve(data.SourceConfig{"outputFolder": out, "databasePath": dbPath})
		if err != nil {
			t.Fatalf("first Resolve: %v", err)
		}
		if err := env.Store.Put(data.KeyLastOffset, []byte("42")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := env.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		env, err = Resolve(data.SourceConfig{
			"outputFolder":  out,
			"databasePath":  dbPath,
			"initialOffset": "1000",
		})
		if err != nil {
			t.Fatalf("second Resolve: %v", err)
		}
		defer env.Close()

		v, err := env.Store.Get(data.KeyLastOffset)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(v) != "42" {
			t.Fatalf("offset = %s, want 42", v)
		}
	})
}

func TestEnsureFolders(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	env, err := Resolve(data.SourceConfig{"outputFolder": out})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer env.Close()

	// A folder removed between scheduler ticks is recreated before the run.
	if err := os.RemoveAll(env.DownloadsFolder); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.EnsureFolders(); err != nil {
		t.Fatalf("EnsureFolders: %v", err)
	}
	if _, err := os.Stat(env.DownloadsFolder); err != nil {
		t.Fatalf("downloads folder not recreated: %v", err)
	}
}
