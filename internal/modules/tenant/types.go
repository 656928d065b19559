// Package tenant implements Tenant Admin: enumerate tenants known to the
// vector store, report per-tenant document stats, and delete a tenant's
// data. It holds no Postgres table of its own — tenants exist only as the
// set of distinct tenant_id values present in vector-store payloads.
package tenant

import (
	"regexp"
	"time"
)

// Stats summarizes one tenant's indexed footprint.
type Stats struct {
	TenantID       string    `json:"tenant_id"`
	DocumentCount  int       `json:"document_count"`
	CollectionName string    `json:"collection_name"`
	LastUpdated    time.Time `json:"last_updated"`
}

// DeleteResult reports the outcome of a confirmed deletion.
type DeleteResult struct {
	TenantID      string `json:"tenant_id"`
	PointsDeleted int    `json:"points_deleted"`
}

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,100}$`)

func validTenantID(tenantID string) bool {
	return tenantIDPattern.MatchString(tenantID)
}
