package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

func newTestIngestionService(t *testing.T, embedder llmgateway.Embedder, vector pinecone.VectorStore) *Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return New(log, embedder, vector, nil, nil, Config{
		ChunkSize:           200,
		ChunkOverlap:        20,
		EmbedBatchSize:      10,
		EmbedConcurrency:    2,
		IndexJobConcurrency: 2,
		OperationTimeout:    5 * time.Second,
	})
}

func TestIndexDocumentEmbedsAndUpserts(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	vector := &fakeVectorStore{}
	svc := newTestIngestionService(t, embedder, vector)

	result, err := svc.IndexDocument(context.Background(), "tenant-a", "policy.txt",
		[]byte("Our return policy allows refunds within 30 days of purchase."), IndexOptions{})
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if result.Skipped {
		t.Fatalf("expected a fresh document to be indexed, not skipped")
	}
	if result.Chunks == 0 {
		t.Fatalf("expected at least one chunk")
	}
	if len(vector.upserted) == 0 {
		t.Fatalf("expected vectors to be upserted")
	}
	for _, v := range vector.upserted {
		if len(v.Values) != 3 {
			t.Fatalf("expected embedding dimension 3, got %d", len(v.Values))
		}
	}
}

func TestIndexDocumentSkipsAlreadyIndexed(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	vector := &fakeVectorStore{existingMatches: []pinecone.VectorMatch{{ID: "chunk-1"}}}
	svc := newTestIngestionService(t, embedder, vector)

	result, err := svc.IndexDocument(context.Background(), "tenant-a", "policy.txt",
		[]byte("Already indexed content."), IndexOptions{DocumentID: "policy"})
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if !result.Skipped || result.Reason != "already_indexed" {
		t.Fatalf("expected already_indexed skip, got %+v", result)
	}
	if len(vector.upserted) != 0 {
		t.Fatalf("should not upsert when already indexed")
	}
}

func TestIndexDocumentRejectsInvalidTenant(t *testing.T) {
	svc := newTestIngestionService(t, &fakeEmbedder{dim: 3}, &fakeVectorStore{})
	if _, err := svc.IndexDocument(context.Background(), "bad tenant id!", "policy.txt", []byte("x"), IndexOptions{}); err == nil {
		t.Fatalf("expected error for invalid tenant id")
	}
}

func TestIndexDocumentRejectsUnsupportedExtension(t *testing.T) {
	svc := newTestIngestionService(t, &fakeEmbedder{dim: 3}, &fakeVectorStore{})
	if _, err := svc.IndexDocument(context.Background(), "tenant-a", "policy", []byte("x"), IndexOptions{}); err == nil {
		t.Fatalf("expected error for path with no extension")
	}
}

func TestIndexMultipleContinuesPastPerDocumentFailure(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	vector := &fakeVectorStore{}
	svc := newTestIngestionService(t, embedder, vector)

	docs := map[string][]byte{
		"good.txt": []byte("Good document content for indexing."),
		"bad":      []byte("no extension"),
	}
	results := svc.IndexMultiple(context.Background(), "tenant-a", docs, nil, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	var sawError, sawSuccess bool
	for _, r := range results {
		if r.Error != "" {
			sawError = true
		}
		if r.Error == "" && r.Chunks > 0 {
			sawSuccess = true
		}
	}
	if !sawError || !sawSuccess {
		t.Fatalf("expected one failure and one success, got %+v", results)
	}
}

func TestDeleteDocumentsScopesToDocumentID(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	vector := &fakeVectorStore{idsToReturn: []string{"chunk-1", "chunk-2"}}
	svc := newTestIngestionService(t, embedder, vector)

	if err := svc.DeleteDocuments(context.Background(), "tenant-a", "policy"); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if vector.lastDeleteFilter["document_id"] != "policy" {
		t.Fatalf("expected delete scoped to document_id=policy, got %+v", vector.lastDeleteFilter)
	}
	if len(vector.deletedIDs) != 2 {
		t.Fatalf("expected 2 ids deleted, got %d", len(vector.deletedIDs))
	}
}

func TestDeleteDocumentsNoOpWhenNothingMatches(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	vector := &fakeVectorStore{}
	svc := newTestIngestionService(t, embedder, vector)

	if err := svc.DeleteDocuments(context.Background(), "tenant-a", ""); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if vector.deleteCalls != 0 {
		t.Fatalf("expected no delete call when no ids match")
	}
}

type fakeEmbedder struct {
	dim int
	err error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}
func (f *fakeEmbedder) Dimension(ctx context.Context) (int, error) { return f.dim, nil }
func (f *fakeEmbedder) BatchSize() int                             { return 16 }

type fakeVectorStore struct {
	existingMatches  []pinecone.VectorMatch
	idsToReturn      []string
	upserted         []pinecone.Vector
	deletedIDs       []string
	lastDeleteFilter map[string]any
	deleteCalls      int
}

func (f *fakeVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	f.upserted = append(f.upserted, vectors...)
	return nil
}
func (f *fakeVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return f.existingMatches, nil
}
func (f *fakeVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	f.lastDeleteFilter = filter
	return f.idsToReturn, nil
}
func (f *fakeVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	f.deleteCalls++
	f.deletedIDs = append(f.deletedIDs, ids...)
	return nil
}
func (f *fakeVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	return nil, "", nil
}
func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }
