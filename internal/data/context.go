package data

// Store keys shared between the downloaders and the provider.
const (
	KeyLastContentHash = "last-content-hash"
	KeyLastOffset      = "last-offset"
)

// Stage statuses recorded on the context trail.
const (
	StatusOK        = "ok"
	StatusFail      = "fail"
	StatusUnchanged = "unchanged"
)

// StateStore is the slice of the persistent state store the pipeline needs.
// The concrete implementation lives in internal/store.
type StateStore interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Last() (string, []byte, error)
	Seek(key string) ([]Entry, error)
}

// Entry is one ordered key-value pair from the state store.
type Entry struct {
	Key   string
	Value []byte
}

// StageStatus is one record on the per-run trail. Every stage appends exactly
// one on completion, ok or fail.
type StageStatus struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

// UpdaterContext is the mutable per-run state threaded through the chain.
// It is created fresh for every cycle and owned exclusively by that cycle;
// Paths and StageStatus only grow, DownloadedFileHash changes at most once
// per run and only on a confirmed content change.
type UpdaterContext struct {
	Source      string
	OperationID string
	Config      SourceConfig

	OutputFolder    string
	DownloadsFolder string
	ContentsFolder  string

	Store StateStore

	// DownloadedFileHash is loaded from the store at context creation and
	// written back by the provider after a successful run. It is the basis
	// for unchanged-content detection.
	DownloadedFileHash string

	Paths       []string
	StageStatus []StageStatus
}

// AppendPath records a new artifact produced by a stage.
func (c *UpdaterContext) AppendPath(p string) {
	c.Paths = append(c.Paths, p)
}

// LastPath returns the most recent artifact, or "" when no stage has
// produced one this run.
func (c *UpdaterContext) LastPath() string {
	if len(c.Paths) == 0 {
		return ""
	}
	return c.Paths[len(c.Paths)-1]
}

// PushStageStatus appends a {stage, status} record to the trail.
func (c *UpdaterContext) PushStageStatus(stage, status string) {
	c.StageStatus = append(c.StageStatus, StageStatus{Stage: stage, Status: status})
}

// Trail returns a copy of the stage status records accumulated so far.
func (c *UpdaterContext) Trail() []StageStatus {
	out := make([]StageStatus, len(c.StageStatus))
	copy(out, c.StageStatus)
	return out
}
