package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neurobridge/support-backend/internal/pkg/httpx"
	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/lru"
	"github.com/neurobridge/support-backend/internal/platform/retry"
)

// ExternalConfig mirrors the EXTERNAL_AGENT_* environment keys named in
// SPEC_FULL.md's domain stack section.
type ExternalConfig struct {
	Enabled    bool
	DBType     string // "postgres" when direct SQL is used instead of the API
	APIURL     string
	APIKey     string
	TableName  string
	FieldID    string
	FieldName  string
	FieldEmail string
	FieldLoad  string
	FieldMax   string
	CacheTTL   time.Duration
}

func ResolveExternalConfigFromEnv() ExternalConfig {
	return ExternalConfig{
		Enabled:    strings.EqualFold(strings.TrimSpace(envSafe("EXTERNAL_AGENT_DB_ENABLED")), "true"),
		DBType:     envSafe("EXTERNAL_AGENT_DB_TYPE"),
		APIURL:     envSafe("EXTERNAL_AGENT_API_URL"),
		APIKey:     envSafe("EXTERNAL_AGENT_API_KEY"),
		TableName:  defaultString(envSafe("EXTERNAL_AGENT_TABLE_NAME"), "agents"),
		FieldID:    defaultString(envSafe("EXTERNAL_AGENT_FIELD_ID"), "id"),
		FieldName:  defaultString(envSafe("EXTERNAL_AGENT_FIELD_NAME"), "name"),
		FieldEmail: defaultString(envSafe("EXTERNAL_AGENT_FIELD_EMAIL"), "email"),
		FieldLoad:  defaultString(envSafe("EXTERNAL_AGENT_FIELD_LOAD"), "current_load"),
		FieldMax:   defaultString(envSafe("EXTERNAL_AGENT_FIELD_MAX"), "max_concurrent"),
		CacheTTL:   envutil.Duration("EXTERNAL_AGENT_CACHE_TTL", 5*time.Minute),
	}
}

func envSafe(name string) string { return strings.TrimSpace(os.Getenv(name)) }

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// externalAgentSource normalizes a remote agent directory, fetched either
// via HTTP (the default) or direct SQL against a read replica (when DBType
// is set), into the same Record shape the local source produces. Results
// are cached for CacheTTL per §4.5.
type externalAgentSource struct {
	log    *logger.Logger
	cfg    ExternalConfig
	client *http.Client
	pool   *pgxpool.Pool // nil unless direct-SQL mode is configured
	cache  *lru.Cache[string, []Record]
}

func NewExternalSource(log *logger.Logger, cfg ExternalConfig, pool *pgxpool.Pool) Source {
	return &externalAgentSource{
		log:    log.With("component", "ExternalAgentSource"),
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		pool:   pool,
		cache:  lru.New[string, []Record](64, cfg.CacheTTL),
	}
}

func (s *externalAgentSource) List(ctx context.Context, tenantID string, filters Filters) ([]Record, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	cacheKey := tenantID + "|" + filters.Department
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}

	var records []Record
	var err error
	if s.cfg.DBType == "postgres" && s.pool != nil {
		records, err = s.listViaSQL(ctx, tenantID)
	} else {
		records, err = s.listViaAPI(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if filters.Department != "" && r.Department != filters.Department {
			continue
		}
		if len(filters.RequiredSkills) > 0 && !hasAnySkill(r.Skills, filters.RequiredSkills) {
			continue
		}
		filtered = append(filtered, r)
	}
	s.cache.Put(cacheKey, filtered)
	return filtered, nil
}

func (s *externalAgentSource) listViaAPI(ctx context.Context, tenantID string) ([]Record, error) {
	if s.cfg.APIURL == "" {
		return nil, nil
	}
	var out []externalAgentDTO
	err := retry.Do(ctx, retry.Default(), httpx.IsRetryableError, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"?tenant_id="+tenantID, nil)
		if err != nil {
			return err
		}
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("external agent API: http %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(out))
	for _, d := range out {
		records = append(records, d.toRecord())
	}
	return records, nil
}

func (s *externalAgentSource) listViaSQL(ctx context.Context, tenantID string) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s FROM %s WHERE tenant_id = $1",
		s.cfg.FieldID, s.cfg.FieldName, s.cfg.FieldEmail, s.cfg.FieldLoad, s.cfg.FieldMax, s.cfg.TableName,
	)
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("external agent SQL query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id, name, email string
		var load, max int
		if err := rows.Scan(&id, &name, &email, &load, &max); err != nil {
			return nil, err
		}
		records = append(records, Record{
			ID: id, Source: "external", Name: name, Email: email,
			CurrentLoad: load, MaxConcurrent: max,
		})
	}
	return records, rows.Err()
}

func (s *externalAgentSource) Update(ctx context.Context, tenantID, agentID string, upd Update) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.cache.Purge()
	if s.cfg.DBType == "postgres" && s.pool != nil {
		query := fmt.Sprintf("UPDATE %s SET %s = %s + $1 WHERE %s = $2", s.cfg.TableName, s.cfg.FieldLoad, s.cfg.FieldLoad, s.cfg.FieldID)
		_, err := s.pool.Exec(ctx, query, upd.LoadDelta, agentID)
		return err
	}
	return retry.Do(ctx, retry.Default(), httpx.IsRetryableError, func(ctx context.Context) error {
		body, _ := json.Marshal(map[string]any{"load_delta": upd.LoadDelta})
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.cfg.APIURL+"/"+agentID, strings.NewReader(string(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("external agent PATCH: http %d", resp.StatusCode)
		}
		return nil
	})
}

type externalAgentDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	CurrentLoad   int      `json:"current_load"`
	MaxConcurrent int      `json:"max_concurrent"`
	Department    string   `json:"department"`
	Skills        []string `json:"skills"`
}

func (d externalAgentDTO) toRecord() Record {
	return Record{
		ID: d.ID, Source: "external", Name: d.Name, Email: d.Email,
		CurrentLoad: d.CurrentLoad, MaxConcurrent: d.MaxConcurrent,
		Department: d.Department, Skills: d.Skills,
	}
}
