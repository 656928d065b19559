package ingestion

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

const (
	maxBytesDefault = 50 * 1024 * 1024
	maxBytesText    = 10 * 1024 * 1024
)

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".html": true, ".htm": true,
}

func validateTenant(tenantID string) error {
	if !tenantPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid tenant_id %q", tenantID)
	}
	return nil
}

func validatePath(path string, size int) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return fmt.Errorf("path %q has no extension", path)
	}
	limit := maxBytesDefault
	if textExtensions[ext] {
		limit = maxBytesText
	}
	if size > limit {
		return fmt.Errorf("path %q exceeds max size %d bytes (got %d)", path, limit, size)
	}
	return nil
}
