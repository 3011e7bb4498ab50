// Package reconciler consumes run events emitted by providers and turns
// them into durable run history, metrics and subscriber notifications.
package reconciler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/metrics"
	"github.com/tinoosan/contentd/internal/repo"
)

// Notifier pushes run outcomes to subscribed consumers. internal/notify
// provides the websocket implementation.
type Notifier interface {
	Broadcast(downloader.Event)
}

// Reconciler processes run events and records them.
type Reconciler struct {
	runs     repo.RunWriter
	events   <-chan downloader.Event
	notifier Notifier
	log      *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(log *slog.Logger, runs repo.RunWriter, events <-chan downloader.Event, notifier Notifier) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{runs: runs, events: events, notifier: notifier, log: log}
}

// Run starts the reconciliation loop.
func (r *Reconciler) Run() {
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case e, ok := <-r.events:
				if !ok {
					return
				}
				r.handle(e)
			}
		}
	}()
}

// Stop terminates the loop and waits for it to drain.
func (r *Reconciler) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.wg.Wait()
	r.stop = nil
}

func (r *Reconciler) handle(e downloader.Event) {
	metrics.Runs.WithLabelValues(e.Source, string(e.Type)).Inc()
	metrics.RunDuration.WithLabelValues(e.Source).Observe(e.Duration.Seconds())
	for _, st := range e.Stages {
		if st.Status == data.StatusFail {
			metrics.StageFailures.WithLabelValues(st.Stage).Inc()
		}
	}

	run := &data.Run{
		Source:      e.Source,
		OperationID: e.OperationID,
		Status:      e.RunStatus(),
		Stages:      e.Stages,
		Paths:       e.Paths,
		Error:       e.Err,
		StartedAt:   e.StartedAt,
		Duration:    e.Duration,
	}
	if _, err := r.runs.Add(context.Background(), run); err != nil {
		r.log.Error("record run", "source", e.Source, "operation_id", e.OperationID, "err", err)
	}

	if r.notifier != nil {
		r.notifier.Broadcast(e)
	}
}
