package app

import (
	agentsmod "github.com/neurobridge/support-backend/internal/modules/agents"
	ingestionmod "github.com/neurobridge/support-backend/internal/modules/ingestion"
	querymod "github.com/neurobridge/support-backend/internal/modules/query"
	tenantmod "github.com/neurobridge/support-backend/internal/modules/tenant"
	"github.com/neurobridge/support-backend/internal/platform/authjwt"
	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime/bridge"
	"github.com/neurobridge/support-backend/internal/utils"
)

// Config aggregates every module's own ResolveConfigFromEnv result plus the
// handful of process-level settings (port, chunk cache directory, JWT
// secret) that don't belong to any one module.
type Config struct {
	Port           string
	Environment    string
	ChunkCacheDir  string
	VectorProvider string

	LLM       llmgateway.Config
	Ingestion ingestionmod.Config
	Query     querymod.Config
	Agents    agentsmod.Config
	External  agentsmod.ExternalConfig
	Tenant    tenantmod.Config
	Bridge    bridge.Config
	JWT       authjwt.Config
}

func LoadConfig(log *logger.Logger) (Config, error) {
	llmCfg, err := llmgateway.ResolveConfigFromEnv(log)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		Environment:    utils.GetEnv("ENVIRONMENT", "development", log),
		ChunkCacheDir:  utils.GetEnv("INGESTION_CHUNK_CACHE_DIR", "/tmp/neurobridge-chunk-cache", log),
		VectorProvider: utils.GetEnv("VECTOR_PROVIDER", "qdrant", log),

		LLM:       llmCfg,
		Ingestion: ingestionmod.ResolveConfigFromEnv(),
		Query:     querymod.ResolveConfigFromEnv(),
		Agents:    agentsmod.ResolveConfigFromEnv(),
		External:  agentsmod.ResolveExternalConfigFromEnv(),
		Tenant:    tenantmod.ResolveConfigFromEnv(),
		Bridge:    bridge.ResolveConfigFromEnv(),
		JWT:       authjwt.ResolveConfigFromEnv(log),
	}, nil
}
