// Package content exposes the process-wide registry of content providers.
// One Facade instance lives for the process lifetime; the agent owner
// constructs it at startup and awaits Stop at shutdown.
package content

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/execctx"
	"github.com/tinoosan/contentd/internal/metrics"
	"github.com/tinoosan/contentd/internal/pipeline"
	"github.com/tinoosan/contentd/internal/provider"
)

// ProviderInfo is the registry view of one provider.
type ProviderInfo struct {
	Name     string         `json:"name"`
	State    provider.State `json:"state"`
	Interval int            `json:"interval"`
	Stages   []string       `json:"stages"`
}

// Facade is the thread-safe provider registry. The registry lock covers map
// mutation and lookup only; it is never held across a chain execution.
type Facade struct {
	mu        sync.RWMutex
	providers map[string]*provider.Provider
	stages    map[string][]string
	started   bool

	log      *slog.Logger
	fetcher  downloader.Fetcher
	reporter downloader.Reporter
}

func NewFacade(log *slog.Logger, fetcher downloader.Fetcher, reporter downloader.Reporter) *Facade {
	if log == nil {
		log = slog.Default()
	}
	return &Facade{
		providers: make(map[string]*provider.Provider),
		stages:    make(map[string][]string),
		log:       log,
		fetcher:   fetcher,
		reporter:  reporter,
	}
}

// AddProvider validates the configuration, resolves the execution
// environment (opening the state store), assembles the chain and registers
// the provider. Construction errors propagate to the caller, which decides
// whether to continue without the source.
func (f *Facade) AddProvider(name string, cfg data.SourceConfig) error {
	if name == "" {
		return fmt.Errorf("%w: empty provider name", data.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	f.mu.RLock()
	_, exists := f.providers[name]
	f.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", data.ErrProviderExists, name)
	}

	env, err := execctx.Resolve(cfg)
	if err != nil {
		return err
	}

	head, err := downloader.NewFromConfig(cfg, f.fetcher)
	if err != nil {
		_ = env.Close()
		return err
	}

	stages := []pipeline.Stage{head}
	if cfg.String("expectedHash") != "" {
		stages = append(stages, pipeline.NewVerifier())
	}
	if cfg.CompressionType() != data.CompressionRaw {
		stages = append(stages, pipeline.NewDecompressor())
	}
	stages = append(stages, pipeline.NewPublisher())

	chain := pipeline.New(f.log, stages...)
	p := provider.New(name, cfg, env, chain, f.log, f.reporter)

	f.mu.Lock()
	if _, exists := f.providers[name]; exists {
		f.mu.Unlock()
		p.Stop()
		return fmt.Errorf("%w: %s", data.ErrProviderExists, name)
	}
	f.providers[name] = p
	f.stages[name] = chain.Stages()
	started := f.started
	f.mu.Unlock()

	metrics.RegisteredProviders.Inc()
	f.log.Info("provider registered", "source", name, "stages", chain.Stages())

	// Sources registered after Start join the schedule immediately when
	// they carry an interval.
	if started && cfg.Interval() > 0 {
		return p.StartScheduling(cfg.Interval())
	}
	return nil
}

// Start begins scheduling for every registered provider that has an
// interval configured.
func (f *Facade) Start() {
	f.mu.Lock()
	f.started = true
	providers := f.snapshot()
	f.mu.Unlock()

	for _, p := range providers {
		if p.Interval() > 0 {
			if err := p.StartScheduling(0); err != nil {
				f.log.Error("start scheduling", "source", p.Name(), "err", err)
			}
		}
	}
}

// Stop halts every provider and waits for in-flight runs to finish before
// returning. Providers are removed from the registry.
func (f *Facade) Stop() {
	f.mu.Lock()
	f.started = false
	providers := f.snapshot()
	f.providers = make(map[string]*provider.Provider)
	f.stages = make(map[string][]string)
	f.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p *provider.Provider) {
			defer wg.Done()
			p.Stop()
			metrics.RegisteredProviders.Dec()
		}(p)
	}
	wg.Wait()
}

// StartScheduling begins periodic execution for one provider.
func (f *Facade) StartScheduling(name string, interval time.Duration) error {
	p, err := f.lookup(name)
	if err != nil {
		return err
	}
	return p.StartScheduling(interval)
}

// StartOndemand triggers one immediate run for a provider.
func (f *Facade) StartOndemand(name string) error {
	p, err := f.lookup(name)
	if err != nil {
		return err
	}
	return p.StartOndemand()
}

// ChangeSchedulerInterval adjusts a provider's period from the next tick.
func (f *Facade) ChangeSchedulerInterval(name string, interval time.Duration) error {
	p, err := f.lookup(name)
	if err != nil {
		return err
	}
	return p.ChangeInterval(interval)
}

// Providers lists the registered providers with their scheduler state.
func (f *Facade) Providers() []ProviderInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(f.providers))
	for name, p := range f.providers {
		out = append(out, ProviderInfo{
			Name:     name,
			State:    p.State(),
			Interval: int(p.Interval() / time.Second),
			Stages:   f.stages[name],
		})
	}
	return out
}

func (f *Facade) lookup(name string) (*provider.Provider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", data.ErrProviderNotFound, name)
	}
	return p, nil
}

// snapshot must be called with f.mu held.
func (f *Facade) snapshot() []*provider.Provider {
	out := make([]*provider.Provider, 0, len(f.providers))
	for _, p := range f.providers {
		out = append(out, p)
	}
	return out
}
