// Package pipeline implements the per-run update chain: an ordered sequence
// of stages executed synchronously against one UpdaterContext. A stage error
// unwinds the chain without invoking later stages; stages communicate only
// through the shared context.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinoosan/contentd/internal/data"
)

// Stage is one link of the update chain. Implementations append their
// {stage, status} record to the context trail and, when they produce an
// artifact, append its path.
type Stage interface {
	Name() string
	Handle(ctx context.Context, uc *data.UpdaterContext) error
}

// Chain runs stages in order on the calling goroutine.
type Chain struct {
	stages []Stage
	log    *slog.Logger
}

func New(log *slog.Logger, stages ...Stage) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{stages: stages, log: log}
}

// Stages exposes the assembled stage names, head first.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Run drives the whole pipeline once. The first failing stage aborts the
// remainder; its error becomes the run's terminal status.
func (c *Chain) Run(ctx context.Context, uc *data.UpdaterContext) error {
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Handle(ctx, uc); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		c.log.Debug("stage done",
			"source", uc.Source,
			"operation_id", uc.OperationID,
			"stage", s.Name())
	}
	return nil
}
