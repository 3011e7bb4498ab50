package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/contentd/internal/data"
)

// maxRunsPerSource bounds the in-memory history so long-lived agents don't
// grow without limit.
const maxRunsPerSource = 256

type InMemoryRunRepo struct {
	mu   sync.RWMutex
	runs map[string]data.Runs
}

func NewInMemoryRunRepo() *InMemoryRunRepo {
	return &InMemoryRunRepo{runs: make(map[string]data.Runs)}
}

func (r *InMemoryRunRepo) Add(ctx context.Context, run *data.Run) (*data.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := run.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	runs := append(r.runs[run.Source], stored)
	if len(runs) > maxRunsPerSource {
		runs = runs[len(runs)-maxRunsPerSource:]
	}
	r.runs[run.Source] = runs
	return stored.Clone(), nil
}

func (r *InMemoryRunRepo) ListBySource(ctx context.Context, source string, limit int) (data.Runs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := r.runs[source]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make(data.Runs, 0, limit)
	for i := len(runs) - 1; i >= len(runs)-limit; i-- {
		out = append(out, runs[i].Clone())
	}
	return out, nil
}

func (r *InMemoryRunRepo) LastBySource(ctx context.Context, source string) (*data.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := r.runs[source]
	if len(runs) == 0 {
		return nil, data.ErrNotFound
	}
	return runs[len(runs)-1].Clone(), nil
}
