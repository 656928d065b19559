package query

import "encoding/json"

// Source is a retrieved chunk surfaced to the caller alongside a generated
// answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// HistoryTurn is one prior message, used for prompt composition's
// conversation-history section.
type HistoryTurn struct {
	Role    string // "customer" | "agent"
	Content string
}

// Options carries per-query tuning and context the Conversation Core
// already holds (history, collected entities) so Query Core doesn't need
// its own Postgres access.
type Options struct {
	History           []HistoryTurn
	CollectedEntities map[string]any
	TopK              int
	PromptType        string
}

// Result is the outcome of a blocking query.
type Result struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	Intent     string   `json:"intent"`
	Confidence *int     `json:"confidence,omitempty"`
	Usage      *Usage   `json:"usage,omitempty"`
	LatencyMS  int64    `json:"latency_ms"`
	Cached     bool     `json:"cached"`
}

type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  int  `json:"total_tokens"`
	Estimated    bool `json:"estimated"`
}

// StreamChunk is one frame of streamQuery's SSE stream. Type names which of
// the three frame shapes this is — "token" (Delta set; the first token frame
// also carries Sources), "done" (Done set, terminal), or "error" (Err set,
// terminal) — so the wire payload always
// self-describes instead of relying on the caller to infer it from which
// fields happen to be non-zero.
type StreamChunk struct {
	Type    string   `json:"type"`
	Delta   string   `json:"delta,omitempty"`
	Sources []Source `json:"sources,omitempty"`
	Done    bool     `json:"done,omitempty"`
	Err     error    `json:"-"`
}

const (
	StreamChunkToken = "token"
	StreamChunkDone  = "done"
	StreamChunkError = "error"
)

// streamChunkWire is StreamChunk's wire shape — Err doesn't marshal on its
// own (most error values carry no exported fields), so MarshalJSON projects
// it onto a plain "error" string instead of silently dropping it.
type streamChunkWire struct {
	Type    string   `json:"type"`
	Delta   string   `json:"delta,omitempty"`
	Sources []Source `json:"sources,omitempty"`
	Done    bool     `json:"done,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (c StreamChunk) MarshalJSON() ([]byte, error) {
	wire := streamChunkWire{Type: c.Type, Delta: c.Delta, Sources: c.Sources, Done: c.Done}
	if c.Err != nil {
		wire.Error = c.Err.Error()
	}
	return json.Marshal(wire)
}

// SemanticHit is one result of semanticSearch.
type SemanticHit struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Metrics is the rolling window Query Core exposes for observability.
type Metrics struct {
	Total        int64   `json:"total"`
	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	Errors       int64   `json:"errors"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	Samples      int     `json:"samples"`
}
