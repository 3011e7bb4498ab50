package provider

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/execctx"
	"github.com/tinoosan/contentd/internal/pipeline"
)

// recordingStage counts invocations and can block to simulate a slow run.
type recordingStage struct {
	mu      sync.Mutex
	runs    int
	block   chan struct{}
	err     error
	produce bool
}

func (s *recordingStage) Name() string { return "Recorder" }

func (s *recordingStage) Handle(_ context.Context, uc *data.UpdaterContext) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	if s.err != nil {
		uc.PushStageStatus(s.Name(), data.StatusFail)
		return s.err
	}
	if s.produce {
		uc.DownloadedFileHash = "abc123"
		uc.AppendPath(filepath.Join(uc.ContentsFolder, "feed.json"))
	}
	uc.PushStageStatus(s.Name(), data.StatusOK)
	return nil
}

func (s *recordingStage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

type collectReporter struct {
	mu     sync.Mutex
	events []downloader.Event
}

func (r *collectReporter) Report(e downloader.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *collectReporter) last() (downloader.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return downloader.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *collectReporter) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestProvider(t *testing.T, stage pipeline.Stage, rep downloader.Reporter, extra data.SourceConfig) *Provider {
	t.Helper()
	cfg := data.SourceConfig{
		"contentSource":   "offline",
		"compressionType": "raw",
		"contentFileName": "feed.json",
		"outputFolder":    filepath.Join(t.TempDir(), "out"),
		"databasePath":    filepath.Join(t.TempDir(), "db"),
		"interval":        3600,
	}
	for k, v := range extra {
		cfg[k] = v
	}
	env, err := execctx.Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve env: %v", err)
	}
	chain := pipeline.New(nil, stage)
	return New("test-source", cfg, env, chain, nil, rep)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}

func TestProviderOndemand(t *testing.T) {
	t.Run("runs the chain once and reports updated", func(t *testing.T) {
		stage := &recordingStage{produce: true}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)
		defer p.Stop()

		if err := p.StartOndemand(); err != nil {
			t.Fatalf("StartOndemand: %v", err)
		}
		waitFor(t, func() bool { return rep.len() == 1 })

		e, _ := rep.last()
		if e.Type != downloader.EventUpdated {
			t.Fatalf("event = %s, want updated", e.Type)
		}
		if e.Source != "test-source" || e.OperationID == "" {
			t.Fatalf("event missing identity: %+v", e)
		}
		if stage.count() != 1 {
			t.Fatalf("stage ran %d times", stage.count())
		}
	})

	t.Run("persists the content hash after a successful run", func(t *testing.T) {
		stage := &recordingStage{produce: true}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)
		defer p.Stop()

		if err := p.StartOndemand(); err != nil {
			t.Fatalf("StartOndemand: %v", err)
		}
		waitFor(t, func() bool { return rep.len() == 1 })

		v, err := p.env.Store.Get(data.KeyLastContentHash)
		if err != nil {
			t.Fatalf("hash not persisted: %v", err)
		}
		if string(v) != "abc123" {
			t.Fatalf("hash = %s", v)
		}
	})

	t.Run("failed run leaves persisted state untouched", func(t *testing.T) {
		stage := &recordingStage{err: errors.New("boom")}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)
		defer p.Stop()

		if err := p.StartOndemand(); err != nil {
			t.Fatalf("StartOndemand: %v", err)
		}
		waitFor(t, func() bool { return rep.len() == 1 })

		e, _ := rep.last()
		if e.Type != downloader.EventFailed || e.Err == "" {
			t.Fatalf("event = %+v, want failed", e)
		}
		if p.State() != StateFailed {
			t.Fatalf("state = %s, want Failed", p.State())
		}
		if _, err := p.env.Store.Get(data.KeyLastContentHash); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("hash was persisted on failure: %v", err)
		}
	})

	t.Run("trigger during an in-flight run is dropped", func(t *testing.T) {
		stage := &recordingStage{block: make(chan struct{})}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)

		if err := p.StartOndemand(); err != nil {
			t.Fatalf("first trigger: %v", err)
		}
		waitFor(t, func() bool { return p.State() == StateRunning })

		// Second trigger must be dropped, not queued. Give its goroutine
		// time to hit the busy run lock before unblocking the first run.
		if err := p.StartOndemand(); err != nil {
			t.Fatalf("second trigger: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
		close(stage.block)
		p.Stop()

		if stage.count() != 1 {
			t.Fatalf("stage ran %d times, want 1", stage.count())
		}
		if rep.len() != 1 {
			t.Fatalf("got %d events, want 1", rep.len())
		}
	})

	t.Run("stopped provider rejects triggers", func(t *testing.T) {
		p := newTestProvider(t, &recordingStage{}, &collectReporter{}, nil)
		p.Stop()
		if err := p.StartOndemand(); !errors.Is(err, data.ErrProviderNotFound) {
			t.Fatalf("expected ErrProviderNotFound, got %v", err)
		}
	})
}

func TestProviderScheduling(t *testing.T) {
	t.Run("runs periodically at the configured interval", func(t *testing.T) {
		stage := &recordingStage{produce: true}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)
		defer p.Stop()

		if err := p.StartScheduling(20 * time.Millisecond); err != nil {
			t.Fatalf("StartScheduling: %v", err)
		}
		if p.State() != StateScheduled {
			t.Fatalf("state = %s, want Scheduled", p.State())
		}
		waitFor(t, func() bool { return stage.count() >= 2 })
	})

	t.Run("zero interval falls back to the configured one", func(t *testing.T) {
		p := newTestProvider(t, &recordingStage{}, &collectReporter{}, nil)
		defer p.Stop()

		if err := p.StartScheduling(0); err != nil {
			t.Fatalf("StartScheduling: %v", err)
		}
		if p.Interval() != time.Hour {
			t.Fatalf("interval = %s, want 1h", p.Interval())
		}
	})

	t.Run("no interval anywhere is an invalid configuration", func(t *testing.T) {
		p := newTestProvider(t, &recordingStage{}, &collectReporter{}, data.SourceConfig{"interval": 0})
		defer p.Stop()

		if err := p.StartScheduling(0); !errors.Is(err, data.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("interval change applies without restart", func(t *testing.T) {
		p := newTestProvider(t, &recordingStage{}, &collectReporter{}, nil)
		defer p.Stop()

		if err := p.StartScheduling(time.Hour); err != nil {
			t.Fatalf("StartScheduling: %v", err)
		}
		if err := p.ChangeInterval(time.Minute); err != nil {
			t.Fatalf("ChangeInterval: %v", err)
		}
		if p.Interval() != time.Minute {
			t.Fatalf("interval = %s, want 1m", p.Interval())
		}
		if err := p.ChangeInterval(0); !errors.Is(err, data.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig for zero interval, got %v", err)
		}
	})

	t.Run("stop waits for the in-flight run", func(t *testing.T) {
		stage := &recordingStage{block: make(chan struct{})}
		rep := &collectReporter{}
		p := newTestProvider(t, stage, rep, nil)

		if err := p.StartScheduling(10 * time.Millisecond); err != nil {
			t.Fatalf("StartScheduling: %v", err)
		}
		waitFor(t, func() bool { return p.State() == StateRunning })

		done := make(chan struct{})
		go func() {
			p.Stop()
			close(done)
		}()

		select {
		case <-done:
			t.Fatalf("Stop returned while a run was in flight")
		case <-time.After(50 * time.Millisecond):
		}

		close(stage.block)
		<-done

		if rep.len() != stage.count() {
			t.Fatalf("events %d != runs %d", rep.len(), stage.count())
		}
		if p.State() != StateIdle {
			t.Fatalf("state after stop = %s, want Idle", p.State())
		}
	})
}
