package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/modules/tenant"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeTenantVectorStore struct {
	points      []pinecone.ScrolledPoint
	describeErr error
}

func (f *fakeTenantVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return nil
}
func (f *fakeTenantVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return nil, nil
}
func (f *fakeTenantVectorStore) QueryIDs(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]string, error) {
	return nil, nil
}
func (f *fakeTenantVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return nil
}
func (f *fakeTenantVectorStore) ScrollAll(ctx context.Context, limit int, cursor string) ([]pinecone.ScrolledPoint, string, error) {
	if cursor != "" {
		return nil, "", nil
	}
	return f.points, "", nil
}
func (f *fakeTenantVectorStore) Ping(ctx context.Context) error { return nil }

func newTestTenantHandler(t *testing.T, vs pinecone.VectorStore) *TenantHandler {
	t.Helper()
	svc := tenant.New(newTestLogger(t), vs, tenant.Config{CacheTTL: time.Minute, ScrollPage: 100})
	return NewTenantHandler(newTestLogger(t), svc)
}

func TestTenantHandlerListReturnsDistinctTenants(t *testing.T) {
	gin.SetMode(gin.TestMode)
	vs := &fakeTenantVectorStore{points: []pinecone.ScrolledPoint{
		{ID: "1", Metadata: map[string]any{"tenant_id": "acme"}},
		{ID: "2", Metadata: map[string]any{"tenant_id": "acme"}},
		{ID: "3", Metadata: map[string]any{"tenant_id": "globex"}},
	}}
	h := newTestTenantHandler(t, vs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tenants", nil)

	h.List(c)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Success bool     `json:"success"`
		Tenants []string `json:"tenants"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success {
		t.Fatalf("expected success=true")
	}
	if len(body.Tenants) != 2 {
		t.Fatalf("expected 2 distinct tenants, got %+v", body.Tenants)
	}
}

func TestTenantHandlerDeleteRequiresConfirm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestTenantHandler(t, &fakeTenantVectorStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/tenants/acme", nil)
	c.Params = gin.Params{{Key: "tenant_id", Value: "acme"}}

	h.Delete(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirm=true, got %d: %s", w.Code, w.Body.String())
	}
}
