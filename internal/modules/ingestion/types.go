package ingestion

import "time"

// ProgressStage names one step of the pipeline, reported via onProgress for
// UI display during long-running indexing jobs.
type ProgressStage string

const (
	StageChecking   ProgressStage = "checking"
	StagePreparing  ProgressStage = "preparing"
	StageProcessing ProgressStage = "processing"
	StageEmbedding  ProgressStage = "embedding"
	StageStoring    ProgressStage = "storing"
	StageComplete   ProgressStage = "complete"
	StageError      ProgressStage = "error"
)

// ProgressEvent is emitted at each pipeline stage. Progress is monotonic
// within one indexDocument call, in [0,100].
type ProgressEvent struct {
	DocumentID string        `json:"document_id"`
	Stage      ProgressStage `json:"stage"`
	Progress   int           `json:"progress"`
	Message    string        `json:"message,omitempty"`
}

// ProgressFunc is the onProgress callback. It must not block meaningfully —
// callers typically forward to the real-time hub.
type ProgressFunc func(ProgressEvent)

// IndexOptions carries per-call tuning and caller-supplied document metadata.
type IndexOptions struct {
	DocumentID   string
	Metadata     map[string]any
	ChunkSize    int
	ChunkOverlap int
	OnProgress   ProgressFunc
}

// IndexResult is the outcome of indexing a single document.
type IndexResult struct {
	DocumentID string        `json:"document_id"`
	Skipped    bool          `json:"skipped"`
	Reason     string        `json:"reason,omitempty"`
	Chunks     int           `json:"chunks"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

func noopProgress(ProgressEvent) {}
