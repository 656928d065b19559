package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/modules/query"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

type fakeQueryEmbedder struct{ dim int }

func (f *fakeQueryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}
func (f *fakeQueryEmbedder) Dimension(ctx context.Context) (int, error) { return f.dim, nil }
func (f *fakeQueryEmbedder) BatchSize() int                             { return 16 }

type fakeQueryGenerator struct{}

func (f *fakeQueryGenerator) Generate(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	return "here is the answer", nil
}
func (f *fakeQueryGenerator) GenerateStream(ctx context.Context, prompt string, opts map[string]any) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- "here is the answer"
	close(ch)
	return ch, nil
}
func (f *fakeQueryGenerator) Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
	return "", nil
}
func (f *fakeQueryGenerator) Ping(ctx context.Context) error { return nil }

type fakeQueryVectorStore struct{}

func (f *fakeQueryVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return nil
}
func (f *fakeQueryVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return []pinecone.VectorMatch{
		{ID: "chunk-1", Score: 0.9, Metadata: map[string]any{"text": "Refunds within 30 days.", "document_id": "policy"}},
	}, nil
}
func (f *fakeQueryVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	return nil, nil
}
func (f *fakeQueryVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return nil
}
func (f *fakeQueryVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	return nil, "", nil
}
func (f *fakeQueryVectorStore) Ping(ctx context.Context) error { return nil }

func newTestQueryHandler(t *testing.T) *QueryHandler {
	t.Helper()
	svc := query.New(newTestLogger(t), &fakeQueryEmbedder{dim: 3}, &fakeQueryGenerator{}, &fakeQueryVectorStore{}, query.Config{
		TopK: 3, ConcurrencyLimit: 4, QueryTimeout: 5 * time.Second, CacheCapacity: 16, CacheTTL: time.Minute,
	})
	return NewQueryHandler(newTestLogger(t), svc)
}

func TestQueryHandlerQueryReturnsComposedAnswer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestQueryHandler(t)

	body, _ := json.Marshal(map[string]string{"tenant_id": "acme", "question": "What is your refund policy?"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Query(c)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Data.Text == "" {
		t.Fatalf("expected a composed answer, got %+v", resp)
	}
}

func TestQueryHandlerQueryRejectsMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestQueryHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Query(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQueryHandlerSemanticSearchReturnsHits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestQueryHandler(t)

	body, _ := json.Marshal(map[string]any{"tenant_id": "acme", "question": "refund", "limit": 5})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/query/semantic-search", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.SemanticSearch(c)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool            `json:"success"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || len(resp.Results) == 0 {
		t.Fatalf("expected semantic search results, got %+v", resp)
	}
}
