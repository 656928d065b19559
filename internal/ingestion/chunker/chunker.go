// Package chunker splits loaded text records into fixed-size, overlapping
// chunks using langchaingo's recursive-character splitter, the closest
// structural match to spec step 5's separator list.
package chunker

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/ingestion/loader"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Config tunes the splitter. A ChunkSize of zero or less becomes 1000; a
// negative ChunkOverlap becomes 0 (zero stays zero); an overlap at or above
// the chunk size becomes ChunkSize/10.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	return c
}

// Split chunks every loaded record of a document and assigns document-wide
// chunk_index/total_chunks, so a CSV-row or HTML-section record boundary
// never resets the index sequence spec §4.1 step 5 expects.
func Split(ctx context.Context, cfg Config, documentID, tenantID string, records []loader.Record) ([]support.Chunk, error) {
	cfg = cfg.withDefaults()
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSeparators(defaultSeparators),
	)

	now := time.Now().UTC()
	var pieces []support.Chunk
	for recordIdx, rec := range records {
		parts, err := splitter.SplitText(rec.Text)
		if err != nil {
			return nil, fmt.Errorf("chunker: split record %d: %w", recordIdx, err)
		}
		source, _ := rec.Metadata["source_file"].(string)
		for _, text := range parts {
			if text == "" {
				continue
			}
			pieces = append(pieces, support.Chunk{
				DocumentID:  documentID,
				TenantID:    tenantID,
				Text:        text,
				Modality:    rec.Modality,
				Source:      source,
				Metadata:    cloneMetadata(rec.Metadata),
				ProcessedAt: now,
			})
		}
	}

	total := len(pieces)
	for i := range pieces {
		pieces[i].ChunkIndex = i
		pieces[i].TotalChunks = total
	}
	return pieces, nil
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
