package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

type fakeVectorStore struct {
	points       []pinecone.ScrolledPoint
	deletedIDs   []string
	deletedNS    string
	scrollAllErr error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return nil
}

func (f *fakeVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return nil, nil
}

func (f *fakeVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	return nil, nil
}

func (f *fakeVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	f.deletedNS = namespace
	f.deletedIDs = ids
	return nil
}

func (f *fakeVectorStore) Ping(ctx context.Context) error {
	return nil
}

func (f *fakeVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	if f.scrollAllErr != nil {
		return nil, "", f.scrollAllErr
	}
	if cursor != "" {
		return nil, "", nil
	}
	return f.points, "", nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

func TestListTenants_DedupesAcrossPoints(t *testing.T) {
	fv := &fakeVectorStore{points: []pinecone.ScrolledPoint{
		{ID: "p1", Metadata: map[string]any{"tenant_id": "acme"}},
		{ID: "p2", Metadata: map[string]any{"tenant_id": "acme"}},
		{ID: "p3", Metadata: map[string]any{"tenant_id": "globex"}},
	}}
	svc := New(newTestLogger(t), fv, Config{CacheTTL: time.Minute, ScrollPage: 250})

	tenants, err := svc.ListTenants(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("expected 2 distinct tenants, got %v", tenants)
	}
}

func TestGetStats_CountsDistinctDocumentsForTenant(t *testing.T) {
	fv := &fakeVectorStore{points: []pinecone.ScrolledPoint{
		{ID: "p1", Metadata: map[string]any{"tenant_id": "acme", "document_id": "doc-1"}},
		{ID: "p2", Metadata: map[string]any{"tenant_id": "acme", "document_id": "doc-1"}},
		{ID: "p3", Metadata: map[string]any{"tenant_id": "acme", "document_id": "doc-2"}},
		{ID: "p4", Metadata: map[string]any{"tenant_id": "globex", "document_id": "doc-9"}},
	}}
	svc := New(newTestLogger(t), fv, Config{CacheTTL: time.Minute, ScrollPage: 250})

	stats, err := svc.GetStats(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DocumentCount != 2 {
		t.Fatalf("expected 2 distinct documents, got %d", stats.DocumentCount)
	}
}

func TestGetStats_ScrollFailureReturnsZeroNotError(t *testing.T) {
	fv := &fakeVectorStore{scrollAllErr: context.DeadlineExceeded}
	svc := New(newTestLogger(t), fv, Config{CacheTTL: time.Minute, ScrollPage: 250})

	stats, err := svc.GetStats(context.Background(), "acme")
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if stats.DocumentCount != 0 {
		t.Fatalf("expected zero count on scroll failure, got %d", stats.DocumentCount)
	}
}

func TestGetStats_RejectsInvalidTenantID(t *testing.T) {
	svc := New(newTestLogger(t), &fakeVectorStore{}, Config{CacheTTL: time.Minute, ScrollPage: 250})
	if _, err := svc.GetStats(context.Background(), "bad tenant id!"); err == nil {
		t.Fatal("expected error for invalid tenant id")
	}
}

func TestDeleteTenant_RequiresConfirm(t *testing.T) {
	svc := New(newTestLogger(t), &fakeVectorStore{}, Config{CacheTTL: time.Minute, ScrollPage: 250})
	if _, err := svc.DeleteTenant(context.Background(), "acme", false); err == nil {
		t.Fatal("expected error when confirm is false")
	}
}

func TestDeleteTenant_DeletesOnlyMatchingTenantPoints(t *testing.T) {
	fv := &fakeVectorStore{points: []pinecone.ScrolledPoint{
		{ID: "p1", Metadata: map[string]any{"tenant_id": "acme"}},
		{ID: "p2", Metadata: map[string]any{"tenant_id": "globex"}},
	}}
	svc := New(newTestLogger(t), fv, Config{CacheTTL: time.Minute, ScrollPage: 250})

	result, err := svc.DeleteTenant(context.Background(), "acme", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PointsDeleted != 1 || len(fv.deletedIDs) != 1 || fv.deletedIDs[0] != "p1" {
		t.Fatalf("expected only acme's point deleted, got %+v / %v", result, fv.deletedIDs)
	}
	if fv.deletedNS != "acme" {
		t.Fatalf("expected namespace to equal tenant id, got %q", fv.deletedNS)
	}
}
