package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/ingestion/loader"
)

func TestSplitAssignsDocumentWideIndices(t *testing.T) {
	records := []loader.Record{
		{Text: strings.Repeat("alpha beta gamma delta. ", 20), Modality: support.ModalityText, Metadata: map[string]any{"source_file": "a.txt"}},
		{Text: strings.Repeat("epsilon zeta eta theta. ", 20), Modality: support.ModalityText, Metadata: map[string]any{"source_file": "a.txt"}},
	}

	chunks, err := Split(context.Background(), Config{ChunkSize: 50, ChunkOverlap: 10}, "doc-1", "tenant-a", records)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks across both records, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d: want ChunkIndex=%d got=%d", i, i, c.ChunkIndex)
		}
		if c.TotalChunks != len(chunks) {
			t.Fatalf("chunk %d: want TotalChunks=%d got=%d", i, len(chunks), c.TotalChunks)
		}
		if c.DocumentID != "doc-1" || c.TenantID != "tenant-a" {
			t.Fatalf("chunk %d: expected document/tenant ids to propagate, got %+v", i, c)
		}
	}
	// the second record's chunks must continue the index sequence, not reset to 0
	sawSecondRecordContinuation := false
	for _, c := range chunks {
		if c.ChunkIndex > 0 {
			sawSecondRecordContinuation = true
			break
		}
	}
	if !sawSecondRecordContinuation {
		t.Fatalf("expected chunk indices to span both records without resetting")
	}
}

func TestSplitSkipsEmptyPieces(t *testing.T) {
	records := []loader.Record{{Text: "short.", Modality: support.ModalityText}}
	chunks, err := Split(context.Background(), Config{}, "doc-2", "tenant-a", records)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for _, c := range chunks {
		if c.Text == "" {
			t.Fatalf("expected no empty chunk text")
		}
	}
}

func TestSplitPropagatesSourceAndMetadata(t *testing.T) {
	records := []loader.Record{
		{Text: "Refunds are processed within 5 business days.", Modality: support.ModalityText, Metadata: map[string]any{"source_file": "policy.txt", "page": 1}},
	}
	chunks, err := Split(context.Background(), Config{}, "doc-3", "tenant-a", records)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	if chunks[0].Source != "policy.txt" {
		t.Fatalf("expected source_file propagated to Source, got %q", chunks[0].Source)
	}
	if chunks[0].Metadata["page"] != 1 {
		t.Fatalf("expected metadata to be cloned onto chunk, got %+v", chunks[0].Metadata)
	}
}

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.ChunkSize != 1000 {
		t.Fatalf("expected default ChunkSize=1000, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 0 {
		t.Fatalf("expected default ChunkOverlap=0, got %d", cfg.ChunkOverlap)
	}
}

func TestConfigWithDefaultsCapsOverlapBelowChunkSize(t *testing.T) {
	cfg := Config{ChunkSize: 100, ChunkOverlap: 100}.withDefaults()
	if cfg.ChunkOverlap != 10 {
		t.Fatalf("expected overlap capped to chunkSize/10=10, got %d", cfg.ChunkOverlap)
	}
}

func TestSplitEmptyRecordsProducesNoChunks(t *testing.T) {
	chunks, err := Split(context.Background(), Config{}, "doc-4", "tenant-a", nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}
