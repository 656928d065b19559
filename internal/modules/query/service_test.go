package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

func newTestService(t *testing.T, embedder llmgateway.Embedder, gen llmgateway.Generator, vector pinecone.VectorStore) *Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return New(log, embedder, gen, vector, Config{
		TopK:             3,
		ConcurrencyLimit: 4,
		QueryTimeout:     5 * time.Second,
		CacheCapacity:    16,
		CacheTTL:         time.Minute,
	})
}

func TestQueryGreetingShortCircuitsRetrieval(t *testing.T) {
	embedder := &fakeEmbedder{}
	gen := &fakeGenerator{}
	vector := &fakeVectorStore{}
	svc := newTestService(t, embedder, gen, vector)

	result, err := svc.Query(context.Background(), "tenant-a", "hello there", Options{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Text != greetingReply {
		t.Fatalf("expected greeting reply, got %q", result.Text)
	}
	if embedder.embedQueryCalls != 0 {
		t.Fatalf("greeting path should not embed; calls=%d", embedder.embedQueryCalls)
	}
	if vector.queryCalls != 0 {
		t.Fatalf("greeting path should not retrieve; calls=%d", vector.queryCalls)
	}
}

func TestQueryRetrievesComposesAndCaches(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	gen := &fakeGenerator{resp: llmgateway.GenerateResponse{Text: "the answer", Usage: llmgateway.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}}}
	vector := &fakeVectorStore{matches: []pinecone.VectorMatch{
		{ID: "chunk-1", Score: 0.9, Metadata: map[string]any{"document_id": "doc-1", "text": "relevant text"}},
	}}
	svc := newTestService(t, embedder, gen, vector)

	result, err := svc.Query(context.Background(), "tenant-a", "what are your hours?", Options{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Text != "the answer" {
		t.Fatalf("Text: want=%q got=%q", "the answer", result.Text)
	}
	if len(result.Sources) != 1 || result.Sources[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected sources: %+v", result.Sources)
	}
	if result.Confidence == nil || *result.Confidence != 90 {
		t.Fatalf("expected confidence=90, got %+v", result.Confidence)
	}
	if result.Cached {
		t.Fatalf("first call should not be marked cached")
	}

	second, err := svc.Query(context.Background(), "tenant-a", "What Are Your Hours?", Options{})
	if err != nil {
		t.Fatalf("Query (cached): %v", err)
	}
	if !second.Cached {
		t.Fatalf("expected second identical (case/whitespace-insensitive) query to hit the cache")
	}
	if embedder.embedQueryCalls != 1 {
		t.Fatalf("expected exactly one embed call across both queries; got=%d", embedder.embedQueryCalls)
	}
}

func TestQueryRejectsTooShortQuestion(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{}, &fakeVectorStore{})
	if _, err := svc.Query(context.Background(), "tenant-a", "hi", Options{}); !errors.Is(err, errInvalidQuestion) {
		t.Fatalf("expected errInvalidQuestion, got %v", err)
	}
}

func TestQueryPropagatesEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	svc := newTestService(t, embedder, &fakeGenerator{}, &fakeVectorStore{})

	if _, err := svc.Query(context.Background(), "tenant-a", "what is the return policy?", Options{}); err == nil {
		t.Fatalf("expected error when embedding fails")
	}
}

func TestSemanticSearchCachesResults(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1}}
	vector := &fakeVectorStore{matches: []pinecone.VectorMatch{
		{ID: "chunk-1", Score: 0.5, Metadata: map[string]any{"document_id": "doc-1", "text": "snippet"}},
	}}
	svc := newTestService(t, embedder, &fakeGenerator{}, vector)

	hits, err := svc.SemanticSearch(context.Background(), "tenant-a", "refund policy", 5)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	if _, err := svc.SemanticSearch(context.Background(), "tenant-a", "refund policy", 5); err != nil {
		t.Fatalf("SemanticSearch (cached): %v", err)
	}
	if vector.queryCalls != 1 {
		t.Fatalf("expected cached second call to skip retrieval; queryCalls=%d", vector.queryCalls)
	}
}

func TestMetricsTracksCacheHitsAndMisses(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1}}
	gen := &fakeGenerator{resp: llmgateway.GenerateResponse{Text: "answer"}}
	vector := &fakeVectorStore{}
	svc := newTestService(t, embedder, gen, vector)

	if _, err := svc.Query(context.Background(), "tenant-a", "what is your refund policy?", Options{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := svc.Query(context.Background(), "tenant-a", "what is your refund policy?", Options{}); err != nil {
		t.Fatalf("Query (cached): %v", err)
	}

	m := svc.Metrics()
	if m.Total != 2 {
		t.Fatalf("Total: want=2 got=%d", m.Total)
	}
	if m.CacheHits != 1 || m.CacheMisses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", m.CacheHits, m.CacheMisses)
	}
}

type fakeEmbedder struct {
	vec             []float32
	err             error
	embedQueryCalls int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.embedQueryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}
func (f *fakeEmbedder) Dimension(ctx context.Context) (int, error) { return len(f.vec), nil }
func (f *fakeEmbedder) BatchSize() int                             { return 16 }

type fakeGenerator struct {
	resp llmgateway.GenerateResponse
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, req llmgateway.GenerateRequest) (llmgateway.GenerateResponse, error) {
	if f.err != nil {
		return llmgateway.GenerateResponse{}, f.err
	}
	return f.resp, nil
}
func (f *fakeGenerator) GenerateStream(ctx context.Context, req llmgateway.GenerateRequest) (<-chan llmgateway.StreamEvent, error) {
	out := make(chan llmgateway.StreamEvent, 1)
	out <- llmgateway.StreamEvent{Delta: f.resp.Text, Done: true}
	close(out)
	return out, nil
}
func (f *fakeGenerator) Describe(ctx context.Context, req llmgateway.DescribeRequest) (string, error) {
	return "", nil
}
func (f *fakeGenerator) Ping(ctx context.Context) error { return nil }

type fakeVectorStore struct {
	matches    []pinecone.VectorMatch
	err        error
	queryCalls int
}

func (f *fakeVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return nil
}
func (f *fakeVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}
func (f *fakeVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	return nil, nil
}
func (f *fakeVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return nil
}
func (f *fakeVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	return nil, "", nil
}
func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }
