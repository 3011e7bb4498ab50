// Package execctx resolves the execution environment for a content source
// before its chain ever runs: working folders are validated and recreated,
// and the per-source state store is opened. Construction-time failures here
// abort provider creation.
package execctx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/store"
)

const (
	downloadsFolder = "downloads"
	contentsFolder  = "contents"
)

// GenericOutputFolder is the fallback working directory used when the
// configuration has no outputFolder.
var GenericOutputFolder = filepath.Join(os.TempDir(), "output_folder")

// Env is the resolved per-source execution environment. Exactly one Env,
// and therefore one store handle, exists per provider.
type Env struct {
	OutputFolder    string
	DownloadsFolder string
	ContentsFolder  string
	Store           *store.Store
}

// Resolve prepares the environment for a source. The previous output folder
// is removed to avoid stale artifacts, then the folder tree is recreated.
// The store is opened at databasePath when one is configured; with
// createDatabase false a missing store is a construction error.
func Resolve(cfg data.SourceConfig) (*Env, error) {
	env := &Env{OutputFolder: cfg.OutputFolder()}
	if env.OutputFolder == "" {
		env.OutputFolder = GenericOutputFolder
	}
	env.DownloadsFolder = filepath.Join(env.OutputFolder, downloadsFolder)
	env.ContentsFolder = filepath.Join(env.OutputFolder, contentsFolder)

	if err := os.RemoveAll(env.OutputFolder); err != nil {
		return nil, fmt.Errorf("%w: remove %s: %v", data.ErrFileSystem, env.OutputFolder, err)
	}
	if err := env.EnsureFolders(); err != nil {
		return nil, err
	}

	if dbPath := cfg.DatabasePath(); dbPath != "" {
		create := true
		if v, ok := cfg["createDatabase"].(bool); ok {
			create = v
		}
		s, err := store.Open(dbPath, create)
		if err != nil {
			return nil, err
		}
		env.Store = s

		if err := seedOffset(s, cfg.InitialOffset()); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return env, nil
}

// EnsureFolders recreates the working folder tree. Called once at
// resolution and again before every run, so a folder removed between ticks
// only fails that run.
func (e *Env) EnsureFolders() error {
	for _, dir := range []string{e.OutputFolder, e.DownloadsFolder, e.ContentsFolder} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dir, err)
		}
	}
	return nil
}

// Close releases the store handle.
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

// seedOffset writes the configured initial offset when the source has no
// cursor yet, so the first incremental fetch starts where the operator
// intended.
func seedOffset(s *store.Store, offset string) error {
	if offset == "" {
		return nil
	}
	if _, err := s.Get(data.KeyLastOffset); err == nil {
		return nil
	}
	return s.Put(data.KeyLastOffset, []byte(offset))
}
