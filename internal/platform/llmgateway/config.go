package llmgateway

import (
	"fmt"
	"strings"

	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/utils"
)

type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
)

type Config struct {
	Provider        Provider
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int

	EmbeddingProvider  Provider
	EmbeddingModel     string
	EmbeddingBatchSize int
}

func ResolveConfigFromEnv(log *logger.Logger) (Config, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(utils.GetEnv("LLM_PROVIDER", "ollama", log))))
	if provider != ProviderOllama && provider != ProviderGemini {
		return Config{}, fmt.Errorf("unsupported LLM_PROVIDER=%q, expected ollama or gemini", provider)
	}

	embeddingProvider := Provider(strings.ToLower(strings.TrimSpace(utils.GetEnv("EMBEDDING_PROVIDER", string(provider), log))))

	cfg := Config{
		Provider:           provider,
		Model:              utils.GetEnv("LLM_MODEL", defaultModel(provider), log),
		BaseURL:            utils.GetEnv("LLM_BASE_URL", defaultBaseURL(provider), log),
		APIKey:             utils.GetEnv("LLM_API_KEY", "", log),
		Temperature:        envutil.Float("TEMPERATURE", 0.3),
		MaxOutputTokens:    envutil.Int("MAX_OUTPUT_TOKENS", 1024),
		EmbeddingProvider:  embeddingProvider,
		EmbeddingModel:     utils.GetEnv("EMBEDDING_MODEL", defaultEmbeddingModel(embeddingProvider), log),
		EmbeddingBatchSize: envutil.Int("EMBEDDING_BATCH_SIZE", 50),
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 50
	}
	return cfg, nil
}

func defaultModel(p Provider) string {
	if p == ProviderGemini {
		return "gemini-1.5-flash"
	}
	return "llama3"
}

func defaultEmbeddingModel(p Provider) string {
	if p == ProviderGemini {
		return "text-embedding-004"
	}
	return "nomic-embed-text"
}

func defaultBaseURL(p Provider) string {
	if p == ProviderGemini {
		return "https://generativelanguage.googleapis.com"
	}
	return "http://localhost:11434"
}
