// Package query implements the Query Core: classify → retrieve → compose →
// generate, with an in-process LRU+TTL cache and bounded query concurrency —
// a buffered channel semaphore plus context.WithTimeout per query.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/lru"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

type Config struct {
	TopK              int
	ConcurrencyLimit  int
	QueryTimeout      time.Duration
	CacheCapacity     int
	CacheTTL          time.Duration
	SemanticCacheSize int
}

func ResolveConfigFromEnv() Config {
	return Config{
		TopK:              envutil.Int("K_DOCUMENTS", 3),
		ConcurrencyLimit:  envutil.Int("QUERY_CONCURRENCY", 10),
		QueryTimeout:      envutil.Duration("QUERY_TIMEOUT", 30*time.Second),
		CacheCapacity:     envutil.Int("QUERY_CACHE_CAPACITY", 1000),
		CacheTTL:          envutil.Duration("QUERY_CACHE_TTL", 30*time.Minute),
		SemanticCacheSize: envutil.Int("SEMANTIC_CACHE_CAPACITY", 500),
	}
}

type Service struct {
	log      *logger.Logger
	embedder llmgateway.Embedder
	gen      llmgateway.Generator
	vector   pinecone.VectorStore
	cfg      Config

	queryCache    *lru.Cache[string, Result]
	semanticCache *lru.Cache[string, []SemanticHit]
	sem           chan struct{}

	metricsMu sync.Mutex
	metrics   Metrics
	latencies []int64
}

func New(log *logger.Logger, embedder llmgateway.Embedder, gen llmgateway.Generator, vector pinecone.VectorStore, cfg Config) *Service {
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = 10
	}
	return &Service{
		log:           log.With("service", "QueryCore"),
		embedder:      embedder,
		gen:           gen,
		vector:        vector,
		cfg:           cfg,
		queryCache:    lru.New[string, Result](cfg.CacheCapacity, cfg.CacheTTL),
		semanticCache: lru.New[string, []SemanticHit](cfg.SemanticCacheSize, cfg.CacheTTL),
		sem:           make(chan struct{}, cfg.ConcurrencyLimit),
	}
}

var errInvalidQuestion = fmt.Errorf("question must be between 3 and 1000 trimmed characters")

func validateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if len(trimmed) < 3 || len(trimmed) > 1000 {
		return "", errInvalidQuestion
	}
	return trimmed, nil
}

// Query answers one question for a tenant. It classifies, retrieves,
// composes a prompt, generates, and caches the result.
func (s *Service) Query(ctx context.Context, tenantID, question string, opts Options) (Result, error) {
	start := time.Now()
	trimmed, err := validateQuestion(question)
	if err != nil {
		return Result{}, err
	}

	if classify(trimmed) == RouteGreeting {
		return Result{Text: greetingReply, Intent: string(RouteGreeting), LatencyMS: time.Since(start).Milliseconds()}, nil
	}

	cacheKey := cacheKeyFor(tenantID, trimmed, opts)
	if cached, ok := s.queryCache.Get(cacheKey); ok {
		s.recordMetric(true, false, time.Since(start))
		cached.Cached = true
		cached.LatencyMS = time.Since(start).Milliseconds()
		return cached, nil
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.recordMetric(false, true, time.Since(start))
		return Result{}, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	result, err := s.runQuery(ctx, tenantID, trimmed, opts)
	if err != nil {
		s.recordMetric(false, true, time.Since(start))
		return Result{}, err
	}
	result.LatencyMS = time.Since(start).Milliseconds()
	s.queryCache.Put(cacheKey, result)
	s.recordMetric(false, false, time.Since(start))
	return result, nil
}

func (s *Service) runQuery(ctx context.Context, tenantID, question string, opts Options) (Result, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	qvec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.vector.QueryMatches(ctx, tenantID, qvec, topK, map[string]any{"tenant_id": tenantID})
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	chunks := make([]support.Chunk, 0, len(matches))
	sources := make([]Source, 0, len(matches))
	maxScore := 0.0
	for _, m := range matches {
		c := support.ChunkFromPayload(m.ID, m.Metadata)
		chunks = append(chunks, c)
		sources = append(sources, Source{DocumentID: c.DocumentID, ChunkID: m.ID, Text: c.Text, Score: m.Score})
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	var confidence *int
	if len(matches) > 0 {
		v := int(maxScore * 100)
		confidence = &v
	}

	prompt := composePrompt(question, chunks, opts.History, opts.CollectedEntities, opts.PromptType)
	genResp, err := s.gen.Generate(ctx, llmgateway.GenerateRequest{Prompt: prompt})
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	return Result{
		Text:       genResp.Text,
		Sources:    sources,
		Intent:     string(RouteVector),
		Confidence: confidence,
		Usage: &Usage{
			InputTokens:  genResp.Usage.InputTokens,
			OutputTokens: genResp.Usage.OutputTokens,
			TotalTokens:  genResp.Usage.TotalTokens,
			Estimated:    genResp.Usage.Estimated,
		},
	}, nil
}

// StreamQuery yields deltas; it bypasses the cache entirely, per spec §4.2.
func (s *Service) StreamQuery(ctx context.Context, tenantID, question string, opts Options) (<-chan StreamChunk, error) {
	trimmed, err := validateQuestion(question)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 16)
	if classify(trimmed) == RouteGreeting {
		go func() {
			defer close(out)
			out <- StreamChunk{Type: StreamChunkToken, Delta: greetingReply}
			out <- StreamChunk{Type: StreamChunkDone, Done: true}
		}()
		return out, nil
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)

	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	qvec, err := s.embedder.EmbedQuery(ctx, trimmed)
	if err != nil {
		cancel()
		<-s.sem
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.vector.QueryMatches(ctx, tenantID, qvec, topK, map[string]any{"tenant_id": tenantID})
	if err != nil {
		cancel()
		<-s.sem
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	chunks := make([]support.Chunk, 0, len(matches))
	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		c := support.ChunkFromPayload(m.ID, m.Metadata)
		chunks = append(chunks, c)
		sources = append(sources, Source{DocumentID: c.DocumentID, ChunkID: m.ID, Text: c.Text, Score: m.Score})
	}
	prompt := composePrompt(trimmed, chunks, opts.History, opts.CollectedEntities, opts.PromptType)

	genStream, err := s.gen.GenerateStream(ctx, llmgateway.GenerateRequest{Prompt: prompt})
	if err != nil {
		cancel()
		<-s.sem
		return nil, fmt.Errorf("generate stream: %w", err)
	}

	go func() {
		defer close(out)
		defer cancel()
		defer func() { <-s.sem }()
		sent := false
		for ev := range genStream {
			if ev.Err != nil {
				out <- StreamChunk{Type: StreamChunkError, Err: ev.Err}
				return
			}
			if ev.Delta != "" {
				if !sent {
					out <- StreamChunk{Type: StreamChunkToken, Delta: ev.Delta, Sources: sources}
					sent = true
				} else {
					out <- StreamChunk{Type: StreamChunkToken, Delta: ev.Delta}
				}
			}
			if ev.Done {
				out <- StreamChunk{Type: StreamChunkDone, Done: true}
			}
		}
	}()
	return out, nil
}

// SemanticSearch retrieves the top matching chunks without generation.
func (s *Service) SemanticSearch(ctx context.Context, tenantID, question string, limit int) ([]SemanticHit, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return nil, fmt.Errorf("question required")
	}

	cacheKey := tenantID + "|" + trimmed + "|" + fmt.Sprint(limit)
	if cached, ok := s.semanticCache.Get(cacheKey); ok {
		return cached, nil
	}

	qvec, err := s.embedder.EmbedQuery(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.vector.QueryMatches(ctx, tenantID, qvec, limit, map[string]any{"tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	hits := make([]SemanticHit, 0, len(matches))
	for _, m := range matches {
		c := support.ChunkFromPayload(m.ID, m.Metadata)
		hits = append(hits, SemanticHit{DocumentID: c.DocumentID, ChunkID: m.ID, Text: c.Text, Score: m.Score})
	}
	s.semanticCache.Put(cacheKey, hits)
	return hits, nil
}

// Classify exposes the pure greeting/vector classifier to callers (e.g. the
// HTTP layer, for telemetry).
func Classify(question string) Route { return classify(question) }

func (s *Service) Metrics() Metrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	m := s.metrics
	m.Samples = len(s.latencies)
	if len(s.latencies) > 0 {
		var sum int64
		for _, l := range s.latencies {
			sum += l
		}
		m.AvgLatencyMS = float64(sum) / float64(len(s.latencies))
	}
	return m
}

func (s *Service) recordMetric(cacheHit, isErr bool, elapsed time.Duration) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.Total++
	if cacheHit {
		s.metrics.CacheHits++
	} else {
		s.metrics.CacheMisses++
	}
	if isErr {
		s.metrics.Errors++
	}
	s.latencies = append(s.latencies, elapsed.Milliseconds())
	if len(s.latencies) > 1000 {
		s.latencies = s.latencies[len(s.latencies)-1000:]
	}
}

// cacheKeyFor hashes tenant|normalized_question|opts_json per spec §4.2.
func cacheKeyFor(tenantID, question string, opts Options) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	optsJSON, _ := json.Marshal(opts)
	sum := sha256.Sum256([]byte(tenantID + "|" + normalized + "|" + string(optsJSON)))
	return hex.EncodeToString(sum[:])
}
