package support

import "time"

// Modality classifies the source content a chunk was derived from.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

// Document describes a single ingested source. It has no Postgres table: a
// document is "indexed" iff at least one chunk with its (tenant_id,
// document_id) exists in the vector store, so Document is reconstructed from
// vector-store payload metadata, never persisted relationally.
type Document struct {
	DocumentID string            `json:"document_id"`
	TenantID   string            `json:"tenant_id"`
	SourceURI  string            `json:"source_uri"`
	ContentHash string           `json:"content_hash"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	IndexedAt  time.Time         `json:"indexed_at"`
}

// Chunk is one embedded unit of a Document, stored as a vector with its text
// and structured metadata carried in the vector store payload.
type Chunk struct {
	ChunkID     string         `json:"chunk_id"`
	DocumentID  string         `json:"document_id"`
	TenantID    string         `json:"tenant_id"`
	Text        string         `json:"text"`
	Embedding   []float32      `json:"-"`
	ChunkIndex  int            `json:"chunk_index"`
	TotalChunks int            `json:"total_chunks"`
	Modality    Modality       `json:"modality"`
	Source      string         `json:"source"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
	IndexedAt   time.Time      `json:"indexed_at"`
}

// ToPayload flattens the chunk into the map stored as vector-store payload.
func (c Chunk) ToPayload() map[string]any {
	payload := map[string]any{
		"text":         c.Text,
		"document_id":  c.DocumentID,
		"tenant_id":    c.TenantID,
		"chunk_index":  c.ChunkIndex,
		"total_chunks": c.TotalChunks,
		"modality":     string(c.Modality),
		"source":       c.Source,
		"processed_at": c.ProcessedAt.UTC().Format(time.RFC3339),
		"indexed_at":   c.IndexedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range c.Metadata {
		if _, exists := payload[k]; !exists {
			payload[k] = v
		}
	}
	return payload
}

// ChunkFromPayload reconstructs a Chunk from vector-store payload metadata.
// score, when >= 0, is carried separately by callers (query matches), not
// part of the chunk itself.
func ChunkFromPayload(id string, payload map[string]any) Chunk {
	c := Chunk{ChunkID: id, Metadata: map[string]any{}}
	for k, v := range payload {
		switch k {
		case "text":
			c.Text, _ = v.(string)
		case "document_id":
			c.DocumentID, _ = v.(string)
		case "tenant_id":
			c.TenantID, _ = v.(string)
		case "chunk_index":
			c.ChunkIndex = asInt(v)
		case "total_chunks":
			c.TotalChunks = asInt(v)
		case "modality":
			s, _ := v.(string)
			c.Modality = Modality(s)
		case "source":
			c.Source, _ = v.(string)
		default:
			c.Metadata[k] = v
		}
	}
	return c
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
