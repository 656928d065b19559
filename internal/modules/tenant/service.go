package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/lru"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

type Config struct {
	CacheTTL   time.Duration
	ScrollPage int
}

func ResolveConfigFromEnv() Config {
	return Config{
		CacheTTL:   envutil.Duration("TENANT_CACHE_TTL", 5*time.Minute),
		ScrollPage: envutil.Int("TENANT_SCROLL_PAGE_SIZE", 250),
	}
}

// Service implements listTenants/getStats/deleteTenant over whatever
// pinecone.VectorStore the deployment is configured with. ScrollAll support
// is provider-dependent (qdrant yes, pinecone's classic API no); when the
// active store can't scroll, listTenants returns an error and getStats
// reports a zero document count.
type Service struct {
	log    *logger.Logger
	vector pinecone.VectorStore
	cfg    Config

	listCache  *lru.Cache[string, []string]
	statsCache *lru.Cache[string, Stats]
}

const listCacheKey = "tenants"

func New(log *logger.Logger, vector pinecone.VectorStore, cfg Config) *Service {
	return &Service{
		log:        log.With("service", "TenantAdmin"),
		vector:     vector,
		cfg:        cfg,
		listCache:  lru.New[string, []string](1, cfg.CacheTTL),
		statsCache: lru.New[string, Stats](1000, cfg.CacheTTL),
	}
}

// ListTenants returns every distinct tenant_id seen across the vector
// store, via a paginated unscoped scroll, cached for CacheTTL.
func (s *Service) ListTenants(ctx context.Context) ([]string, error) {
	if cached, ok := s.listCache.Get(listCacheKey); ok {
		return cached, nil
	}

	seen := map[string]struct{}{}
	cursor := ""
	for {
		points, next, err := s.vector.ScrollAll(ctx, s.cfg.ScrollPage, cursor)
		if err != nil {
			return nil, fmt.Errorf("scroll vector store: %w", err)
		}
		for _, p := range points {
			if tid, _ := p.Metadata["tenant_id"].(string); tid != "" {
				seen[tid] = struct{}{}
			}
		}
		if next == "" || len(points) == 0 {
			break
		}
		cursor = next
	}

	out := make([]string, 0, len(seen))
	for tid := range seen {
		out = append(out, tid)
	}
	s.listCache.Put(listCacheKey, out)
	return out, nil
}

// GetStats counts distinct document_id values for tenantID via the same
// unscoped scroll, filtering client-side since ScrollAll carries no filter
// parameter. Returns a zero count, not an error, if the collection or
// tenant is simply absent — distinguishing "no documents yet" from a real
// failure matters to the /documents/stats endpoint.
func (s *Service) GetStats(ctx context.Context, tenantID string) (Stats, error) {
	if !validTenantID(tenantID) {
		return Stats{}, fmt.Errorf("invalid tenant id")
	}
	if cached, ok := s.statsCache.Get(tenantID); ok {
		return cached, nil
	}

	docs := map[string]struct{}{}
	cursor := ""
	for {
		points, next, err := s.vector.ScrollAll(ctx, s.cfg.ScrollPage, cursor)
		if err != nil {
			s.log.Warn("scroll for tenant stats failed, reporting zero", "tenant_id", tenantID, "error", err)
			return Stats{TenantID: tenantID, DocumentCount: 0, LastUpdated: time.Now().UTC()}, nil
		}
		for _, p := range points {
			tid, _ := p.Metadata["tenant_id"].(string)
			if tid != tenantID {
				continue
			}
			if docID, _ := p.Metadata["document_id"].(string); docID != "" {
				docs[docID] = struct{}{}
			}
		}
		if next == "" || len(points) == 0 {
			break
		}
		cursor = next
	}

	out := Stats{TenantID: tenantID, DocumentCount: len(docs), LastUpdated: time.Now().UTC()}
	s.statsCache.Put(tenantID, out)
	return out, nil
}

// DeleteTenant removes every point in tenantID's namespace. confirm must be
// explicitly true; this is destructive and irreversible at the vector-store
// level.
func (s *Service) DeleteTenant(ctx context.Context, tenantID string, confirm bool) (DeleteResult, error) {
	if !validTenantID(tenantID) {
		return DeleteResult{}, fmt.Errorf("invalid tenant id")
	}
	if !confirm {
		return DeleteResult{}, fmt.Errorf("deletion requires explicit confirm=true")
	}

	ids, err := s.collectTenantIDs(ctx, tenantID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("collect tenant points: %w", err)
	}
	if err := s.vector.DeleteIDs(ctx, tenantID, ids); err != nil {
		return DeleteResult{}, fmt.Errorf("delete tenant points: %w", err)
	}

	s.listCache.Delete(listCacheKey)
	s.statsCache.Delete(tenantID)
	return DeleteResult{TenantID: tenantID, PointsDeleted: len(ids)}, nil
}

func (s *Service) collectTenantIDs(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	cursor := ""
	for {
		points, next, err := s.vector.ScrollAll(ctx, s.cfg.ScrollPage, cursor)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			if tid, _ := p.Metadata["tenant_id"].(string); tid == tenantID {
				ids = append(ids, p.ID)
			}
		}
		if next == "" || len(points) == 0 {
			break
		}
		cursor = next
	}
	return ids, nil
}
