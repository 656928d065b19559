package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/retry"
)

// Embedder is the batch + single-query embedding surface Ingestion and Query
// Core depend on, plus a dimension probe used to validate the vector store
// collection at bootstrap.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension(ctx context.Context) (int, error)
	BatchSize() int
}

type embedder struct {
	log    *logger.Logger
	cfg    Config
	http   *http.Client
	policy retry.Policy
	dim    int
}

func NewEmbedder(log *logger.Logger, cfg Config) Embedder {
	return &embedder{
		log:    log.With("service", "EmbeddingGateway", "provider", string(cfg.EmbeddingProvider)),
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		policy: retry.Default(),
	}
}

func (e *embedder) BatchSize() int { return e.cfg.EmbeddingBatchSize }

func (e *embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding gateway returned no vectors")
	}
	return vecs[0], nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out [][]float32
	err := retry.Do(ctx, e.policy, isRetryableUpstreamError, func(ctx context.Context) error {
		var callErr error
		if e.cfg.EmbeddingProvider == ProviderGemini {
			out, callErr = e.embedGemini(ctx, texts)
		} else {
			out, callErr = e.embedOllama(ctx, texts)
		}
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		e.dim = len(out[0])
	}
	return out, nil
}

func (e *embedder) Dimension(ctx context.Context) (int, error) {
	if e.dim > 0 {
		return e.dim, nil
	}
	vecs, err := e.EmbedBatch(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 {
		return 0, fmt.Errorf("embedding gateway returned no vector for dimension probe")
	}
	return len(vecs[0]), nil
}

// --- Ollama ---

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *embedder) embedOllama(ctx context.Context, texts []string) ([][]float32, error) {
	body := ollamaEmbedRequest{Model: e.cfg.EmbeddingModel, Input: texts}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.cfg.BaseURL, "/")+"/api/embed", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama embed http status=%d", resp.StatusCode)
	}
	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}

// --- Gemini ---

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedContentRequest `json:"requests"`
}
type geminiEmbedContentRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}
type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}
type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

func (e *embedder) embedGemini(ctx context.Context, texts []string) ([][]float32, error) {
	modelRef := "models/" + e.cfg.EmbeddingModel
	reqs := make([]geminiEmbedContentRequest, 0, len(texts))
	for _, t := range texts {
		reqs = append(reqs, geminiEmbedContentRequest{
			Model:   modelRef,
			Content: geminiContent{Parts: []geminiPart{{Text: t}}},
		})
	}
	body := geminiBatchEmbedRequest{Requests: reqs}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v1beta/%s:batchEmbedContents?key=%s", modelRef, e.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.cfg.BaseURL, "/")+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini embed http status=%d", resp.StatusCode)
	}
	var out geminiBatchEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	vecs := make([][]float32, 0, len(out.Embeddings))
	for _, emb := range out.Embeddings {
		vecs = append(vecs, emb.Values)
	}
	return vecs, nil
}
