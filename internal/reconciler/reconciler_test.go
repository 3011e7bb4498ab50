package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/repo"
)

type stubNotifier struct {
	got chan downloader.Event
}

func (s *stubNotifier) Broadcast(e downloader.Event) { s.got <- e }

func TestReconcilerRecordsRuns(t *testing.T) {
	runs := repo.NewInMemoryRunRepo()
	events := make(chan downloader.Event, 1)
	notifier := &stubNotifier{got: make(chan downloader.Event, 1)}

	r := New(nil, runs, events, notifier)
	r.Run()
	defer r.Stop()

	events <- downloader.Event{
		Source:      "vd-feed",
		OperationID: "op-1",
		Type:        downloader.EventUpdated,
		Stages:      []data.StageStatus{{Stage: "FileDownloader", Status: data.StatusOK}},
		Paths:       []string{"/tmp/out/contents/feed.json"},
		StartedAt:   time.Now(),
		Duration:    time.Second,
	}

	select {
	case e := <-notifier.got:
		if e.OperationID != "op-1" {
			t.Fatalf("notified wrong event: %#v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for broadcast")
	}

	run, err := runs.LastBySource(context.Background(), "vd-feed")
	if err != nil {
		t.Fatalf("LastBySource: %v", err)
	}
	if run.Status != data.RunSucceeded || run.OperationID != "op-1" {
		t.Fatalf("unexpected run: %#v", run)
	}
}

func TestReconcilerFailedRun(t *testing.T) {
	runs := repo.NewInMemoryRunRepo()
	events := make(chan downloader.Event, 1)

	r := New(nil, runs, events, nil)
	r.Run()

	events <- downloader.Event{
		Source: "vd-feed",
		Type:   downloader.EventFailed,
		Err:    "stage FileDownloader: download failed",
		Stages: []data.StageStatus{{Stage: "FileDownloader", Status: data.StatusFail}},
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		run, err := runs.LastBySource(context.Background(), "vd-feed")
		if err == nil {
			if run.Status != data.RunFailed || run.Error == "" {
				t.Fatalf("unexpected run: %#v", run)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run was never recorded: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	r.Stop()
}
