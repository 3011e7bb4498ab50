package data

import (
	"encoding/json"
	"io"
	"time"
)

// RunStatus is the terminal outcome of one chain execution.
type RunStatus string

const (
	RunSucceeded RunStatus = "Succeeded"
	RunUnchanged RunStatus = "Unchanged"
	RunFailed    RunStatus = "Failed"
)

// Run is the recorded summary of one chain execution for a source.
type Run struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	OperationID string        `json:"operationId"`
	Status      RunStatus     `json:"status"`
	Stages      []StageStatus `json:"stages"`
	Paths       []string      `json:"paths,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

type Runs []*Run

func (r *Runs) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

func (r *Run) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

// Clone returns a deep copy so repository callers cannot mutate stored state.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Stages = append([]StageStatus(nil), r.Stages...)
	cp.Paths = append([]string(nil), r.Paths...)
	return &cp
}
