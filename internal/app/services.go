package app

import (
	"fmt"

	"github.com/neurobridge/support-backend/internal/ingestion/cache"
	"github.com/neurobridge/support-backend/internal/modules/agents"
	"github.com/neurobridge/support-backend/internal/modules/conversation"
	"github.com/neurobridge/support-backend/internal/modules/extraction"
	"github.com/neurobridge/support-backend/internal/modules/ingestion"
	"github.com/neurobridge/support-backend/internal/modules/query"
	"github.com/neurobridge/support-backend/internal/modules/tenant"
	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
	"github.com/neurobridge/support-backend/internal/realtime"
	"github.com/neurobridge/support-backend/internal/realtime/bridge"
)

// Services groups every domain module's entry point. Fields are left nil
// when their optional dependency (the vector store, the external agent
// bridge) wasn't configured, and callers/handlers guard accordingly.
type Services struct {
	Embedder llmgateway.Embedder
	Gen      llmgateway.Generator
	Vector   pinecone.VectorStore

	Ingestion    *ingestion.Service
	Query        *query.Service
	Agents       *agents.Service
	Extraction   *extraction.Service
	Conversation *conversation.Service
	Tenant       *tenant.Service
	Bridge       *bridge.Client
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, hub *realtime.SSEHub) (Services, error) {
	embedder := llmgateway.NewEmbedder(log, cfg.LLM)
	gen := llmgateway.NewGenerator(log, cfg.LLM)

	vector, err := resolveVectorStore(log, cfg.VectorProvider)
	if err != nil {
		return Services{}, fmt.Errorf("vector store: %w", err)
	}

	chunkCache, err := cache.New(cfg.ChunkCacheDir)
	if err != nil {
		return Services{}, fmt.Errorf("chunk cache: %w", err)
	}

	ingestionSvc := ingestion.New(log, embedder, vector, gen, chunkCache, cfg.Ingestion)
	querySvc := query.New(log, embedder, gen, vector, cfg.Query)
	extractionSvc := extraction.New(gen)

	inboundHandler := newBridgeInboundHandler(log, repos.Rooms, repos.Messages, repos.Agents, hub)
	bridgeClient := bridge.New(log, cfg.Bridge, inboundHandler)

	localSource := agents.NewLocalSource(repos.Agents)
	externalSource := agents.NewExternalSource(log, cfg.External, nil)
	agentsSvc := agents.New(log, localSource, externalSource, repos.Queue, repos.Rooms, repos.Messages, repos.Agents, bridgeClient, cfg.Agents)

	conversationSvc := conversation.New(log, repos.Rooms, repos.Messages, repos.Sessions, agentsSvc, querySvc, extractionSvc, hub, bridgeClient)

	tenantSvc := tenant.New(log, vector, cfg.Tenant)

	return Services{
		Embedder:     embedder,
		Gen:          gen,
		Vector:       vector,
		Ingestion:    ingestionSvc,
		Query:        querySvc,
		Agents:       agentsSvc,
		Extraction:   extractionSvc,
		Conversation: conversationSvc,
		Tenant:       tenantSvc,
		Bridge:       bridgeClient,
	}, nil
}
