// Package provider ties one content source to its chain and scheduler.
// Providers run fully in parallel with each other; within one provider runs
// are strictly serialized and a tick that fires mid-run is skipped, not
// queued.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/execctx"
	"github.com/tinoosan/contentd/internal/pipeline"
)

// State is the scheduler state of a provider.
type State string

const (
	StateIdle      State = "Idle"
	StateScheduled State = "Scheduled"
	StateRunning   State = "Running"
	StateFailed    State = "Failed"
)

// Provider owns one chain instance plus its scheduler.
type Provider struct {
	name     string
	cfg      data.SourceConfig
	env      *execctx.Env
	chain    *pipeline.Chain
	log      *slog.Logger
	reporter downloader.Reporter

	mu        sync.Mutex
	interval  time.Duration
	stop      chan struct{}
	scheduled bool
	stopped   bool
	state     State

	wg sync.WaitGroup

	// runMu serializes chain executions. Ticks and on-demand triggers that
	// cannot take it are dropped.
	runMu sync.Mutex
}

func New(name string, cfg data.SourceConfig, env *execctx.Env, chain *pipeline.Chain, log *slog.Logger, reporter downloader.Reporter) *Provider {
	if log == nil {
		log = slog.Default()
	}
	if reporter == nil {
		reporter = downloader.NoopReporter{}
	}
	return &Provider{
		name:     name,
		cfg:      cfg,
		env:      env,
		chain:    chain,
		log:      log.With("source", name),
		reporter: reporter,
		interval: cfg.Interval(),
		state:    StateIdle,
	}
}

// Name returns the source name the provider was registered under.
func (p *Provider) Name() string { return p.name }

// State reports the scheduler state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Interval reports the current scheduler period.
func (p *Provider) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// StartScheduling begins periodic invocation of the chain every interval.
// A zero interval falls back to the configured one. Starting an already
// scheduled provider only updates the interval.
func (p *Provider) StartScheduling(interval time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return fmt.Errorf("%w: provider %s is stopped", data.ErrProviderNotFound, p.name)
	}
	if interval <= 0 {
		interval = p.interval
	}
	if interval <= 0 {
		return fmt.Errorf("%w: no scheduler interval for %s", data.ErrInvalidConfig, p.name)
	}
	p.interval = interval
	if p.scheduled {
		return nil
	}
	p.scheduled = true
	p.state = StateScheduled
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.loop(p.stop)
	return nil
}

// StartOndemand triggers exactly one immediate run outside the periodic
// schedule. If a run is already in flight the trigger is dropped.
func (p *Provider) StartOndemand() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("%w: provider %s is stopped", data.ErrProviderNotFound, p.name)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if !p.runMu.TryLock() {
			p.log.Info("on-demand trigger skipped, run in flight")
			return
		}
		defer p.runMu.Unlock()
		p.runOnce()
	}()
	return nil
}

// ChangeInterval adjusts the scheduler period. It takes effect from the
// next tick and never aborts an in-flight run.
func (p *Provider) ChangeInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", data.ErrInvalidConfig)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
	return nil
}

// Stop halts the scheduler, waits for any in-flight run to finish, and
// closes the state store. Stopping twice is a no-op.
func (p *Provider) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.scheduled {
		close(p.stop)
		p.scheduled = false
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()

	if err := p.env.Close(); err != nil {
		p.log.Error("close state store", "err", err)
	}
}

func (p *Provider) loop(stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		interval := p.interval
		p.mu.Unlock()

		select {
		case <-stop:
			return
		case <-time.After(interval):
			if !p.runMu.TryLock() {
				p.log.Info("tick skipped, run in flight")
				continue
			}
			p.runOnce()
			p.runMu.Unlock()
		}
	}
}

func (p *Provider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// runOnce executes the chain with a fresh context and reports the outcome.
// Persisted state (hash, offsets) is left untouched by failed runs; the
// next tick is the retry mechanism.
func (p *Provider) runOnce() {
	start := time.Now()
	opID := uuid.NewString()
	log := p.log.With("operation_id", opID)

	p.setState(StateRunning)

	uc, err := p.newContext(opID)
	if err != nil {
		log.Error("prepare run context", "err", err)
		p.finish(downloader.Event{
			Source:      p.name,
			OperationID: opID,
			Type:        downloader.EventFailed,
			Err:         err.Error(),
			StartedAt:   start,
			Duration:    time.Since(start),
		}, log)
		return
	}

	runErr := p.chain.Run(context.Background(), uc)

	e := downloader.Event{
		Source:      p.name,
		OperationID: opID,
		Stages:      uc.Trail(),
		Paths:       append([]string(nil), uc.Paths...),
		StartedAt:   start,
		Duration:    time.Since(start),
	}

	switch {
	case runErr != nil:
		e.Type = downloader.EventFailed
		e.Err = runErr.Error()
	case len(uc.Paths) == 0:
		e.Type = downloader.EventUnchanged
	default:
		e.Type = downloader.EventUpdated
		if err := p.persistHash(uc); err != nil {
			e.Type = downloader.EventFailed
			e.Err = err.Error()
		}
	}

	p.finish(e, log)
}

func (p *Provider) finish(e downloader.Event, log *slog.Logger) {
	if e.Type == downloader.EventFailed {
		log.Error("run failed", "err", e.Err, "stages", e.Stages, "dur_ms", e.Duration.Milliseconds())
		p.setState(StateFailed)
	} else {
		log.Info("run finished", "outcome", string(e.Type), "stages", e.Stages, "dur_ms", e.Duration.Milliseconds())
		p.mu.Lock()
		if p.scheduled {
			p.state = StateScheduled
		} else {
			p.state = StateIdle
		}
		p.mu.Unlock()
	}
	p.reporter.Report(e)
}

// newContext builds the fresh per-run updater context, loading the previous
// run's content hash from the store.
func (p *Provider) newContext(opID string) (*data.UpdaterContext, error) {
	if err := p.env.EnsureFolders(); err != nil {
		return nil, err
	}

	uc := &data.UpdaterContext{
		Source:          p.name,
		OperationID:     opID,
		Config:          p.cfg,
		OutputFolder:    p.env.OutputFolder,
		DownloadsFolder: p.env.DownloadsFolder,
		ContentsFolder:  p.env.ContentsFolder,
	}
	if p.env.Store != nil {
		uc.Store = p.env.Store
		hash, err := p.env.Store.Get(data.KeyLastContentHash)
		switch {
		case err == nil:
			uc.DownloadedFileHash = string(hash)
		case errors.Is(err, data.ErrNotFound):
			// First run for this source.
		default:
			return nil, err
		}
	}
	return uc, nil
}

// persistHash writes the run's content hash back so the next cycle can
// detect unchanged content. Only called after a fully successful run.
func (p *Provider) persistHash(uc *data.UpdaterContext) error {
	if p.env.Store == nil || uc.DownloadedFileHash == "" {
		return nil
	}
	return p.env.Store.Put(data.KeyLastContentHash, []byte(uc.DownloadedFileHash))
}
