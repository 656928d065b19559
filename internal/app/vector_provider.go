package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
	"github.com/neurobridge/support-backend/internal/platform/qdrant"
)

// Indirected through package vars, as the teacher's own vector_provider.go
// does, so tests can swap in a stub without touching real network clients.
var (
	newQdrantVectorStore   = qdrant.NewVectorStore
	newPineconeClient      = pinecone.NewClient
	newPineconeVectorStore = pinecone.NewVectorStore
)

// resolveVectorStore picks Pinecone or Qdrant per VECTOR_PROVIDER, grounded
// on the teacher's internal/app/vector_provider.go provider switch — trimmed
// to this backend's two supported providers and without the teacher's
// object-storage-mode/metrics plumbing, which has no equivalent here.
func resolveVectorStore(log *logger.Logger, provider string) (pinecone.VectorStore, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "qdrant":
		cfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("qdrant config: %w", err)
		}
		return newQdrantVectorStore(log, cfg)

	case "pinecone":
		apiKey := strings.TrimSpace(os.Getenv("PINECONE_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("PINECONE_API_KEY required when VECTOR_PROVIDER=pinecone")
		}
		client, err := newPineconeClient(apiKey, strings.TrimSpace(os.Getenv("PINECONE_BASE_URL")))
		if err != nil {
			return nil, fmt.Errorf("pinecone client: %w", err)
		}
		return newPineconeVectorStore(log, client)

	default:
		return nil, fmt.Errorf("unsupported VECTOR_PROVIDER=%q, expected qdrant or pinecone", provider)
	}
}
