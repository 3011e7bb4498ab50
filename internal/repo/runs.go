package repo

import (
	"context"

	"github.com/tinoosan/contentd/internal/data"
)

// RunRepo records and serves run history for registered sources.
type RunRepo interface {
	RunReader
	RunWriter
}

type RunReader interface {
	// ListBySource returns the most recent runs for a source, newest first,
	// capped at limit (<=0 means no cap).
	ListBySource(ctx context.Context, source string, limit int) (data.Runs, error)
	// LastBySource returns the most recent run for a source.
	LastBySource(ctx context.Context, source string) (*data.Run, error)
}

type RunWriter interface {
	Add(ctx context.Context, run *data.Run) (*data.Run, error)
}
