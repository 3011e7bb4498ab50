package downloader

import (
	"time"

	"github.com/tinoosan/contentd/internal/data"
)

// Event is emitted once per chain execution. Terminal run events carry the
// full stage-status trail so the reconciler can record the run and
// downstream subscribers can see what changed.
type Event struct {
	Source      string
	OperationID string
	Type        EventType
	Stages      []data.StageStatus
	Paths       []string
	Err         string
	StartedAt   time.Time
	Duration    time.Duration
}

// EventType defines the run outcomes downloader chains may report.
type EventType string

const (
	EventUpdated   EventType = "Updated"
	EventUnchanged EventType = "Unchanged"
	EventFailed    EventType = "Failed"
)

// RunStatus maps the event to the persisted run status.
func (e Event) RunStatus() data.RunStatus {
	switch e.Type {
	case EventUpdated:
		return data.RunSucceeded
	case EventUnchanged:
		return data.RunUnchanged
	default:
		return data.RunFailed
	}
}
