package app

import (
	"context"
	"testing"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
	"github.com/neurobridge/support-backend/internal/platform/qdrant"
)

func TestResolveVectorStoreQdrantSelected(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	origQdrant := newQdrantVectorStore
	t.Cleanup(func() { newQdrantVectorStore = origQdrant })

	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "support-chunks")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	var captured qdrant.Config
	stub := &stubVectorStore{}
	newQdrantVectorStore = func(_ *logger.Logger, cfg qdrant.Config) (pinecone.VectorStore, error) {
		captured = cfg
		return stub, nil
	}

	vs, err := resolveVectorStore(log, "qdrant")
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if vs != stub {
		t.Fatalf("expected stub store returned")
	}
	if captured.Collection != "support-chunks" {
		t.Fatalf("collection: want=%q got=%q", "support-chunks", captured.Collection)
	}
}

func TestResolveVectorStorePineconeRequiresAPIKey(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	t.Setenv("PINECONE_API_KEY", "")

	_, err = resolveVectorStore(log, "pinecone")
	if err == nil {
		t.Fatalf("expected error when PINECONE_API_KEY is unset")
	}
}

func TestResolveVectorStorePineconeSelected(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	t.Setenv("PINECONE_API_KEY", "test-key")

	origClient := newPineconeClient
	origStore := newPineconeVectorStore
	t.Cleanup(func() {
		newPineconeClient = origClient
		newPineconeVectorStore = origStore
	})

	fakeClient := &stubPineconeClient{}
	stub := &stubVectorStore{}
	clientCalls, storeCalls := 0, 0
	newPineconeClient = func(apiKey, controlURL string) (pinecone.Client, error) {
		clientCalls++
		if apiKey != "test-key" {
			t.Fatalf("apiKey: want=test-key got=%q", apiKey)
		}
		return fakeClient, nil
	}
	newPineconeVectorStore = func(_ *logger.Logger, c pinecone.Client) (pinecone.VectorStore, error) {
		storeCalls++
		if c != fakeClient {
			t.Fatalf("pinecone client mismatch")
		}
		return stub, nil
	}

	vs, err := resolveVectorStore(log, "pinecone")
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if vs != stub {
		t.Fatalf("expected stub store returned")
	}
	if clientCalls != 1 || storeCalls != 1 {
		t.Fatalf("call counts: clientCalls=%d storeCalls=%d", clientCalls, storeCalls)
	}
}

func TestResolveVectorStoreUnsupportedProvider(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	if _, err := resolveVectorStore(log, "weaviate"); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

type stubVectorStore struct{}

func (s *stubVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return nil
}
func (s *stubVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return nil, nil
}
func (s *stubVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	return nil, nil
}
func (s *stubVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return nil
}
func (s *stubVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	return nil, "", nil
}
func (s *stubVectorStore) Ping(ctx context.Context) error { return nil }

type stubPineconeClient struct{}

func (c *stubPineconeClient) UpsertVectors(ctx context.Context, indexHost string, req pinecone.UpsertRequest) (pinecone.UpsertResponse, error) {
	return pinecone.UpsertResponse{}, nil
}
func (c *stubPineconeClient) Query(ctx context.Context, indexHost string, req pinecone.QueryRequest) (pinecone.QueryResponse, error) {
	return pinecone.QueryResponse{}, nil
}
func (c *stubPineconeClient) DeleteVectors(ctx context.Context, indexHost string, req pinecone.DeleteRequest) (pinecone.DeleteResponse, error) {
	return pinecone.DeleteResponse{}, nil
}
func (c *stubPineconeClient) DescribeIndex(ctx context.Context, indexName string) (pinecone.IndexDescription, error) {
	return pinecone.IndexDescription{}, nil
}
