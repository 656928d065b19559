// Package ingestion implements the Ingestion Core: load → chunk → embed →
// store, with an on-disk chunk cache, idempotency-by-document check, and
// bounded concurrency for both indexing jobs and embedding batches — the
// same errgroup.SetLimit fan-out idiom the teacher uses in
// internal/modules/learning/steps/embed_chunks.go, generalized from
// Postgres+Pinecone chunk rows to vector-store-only chunk payloads.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/ingestion/cache"
	"github.com/neurobridge/support-backend/internal/ingestion/chunker"
	"github.com/neurobridge/support-backend/internal/ingestion/loader"
	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/pinecone"
)

// Config tunes the ingestion pipeline. Every field has a spec-mandated
// default, resolved by ResolveConfigFromEnv.
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	EmbedBatchSize      int
	EmbedConcurrency    int
	IndexJobConcurrency int
	OperationTimeout    time.Duration
}

func ResolveConfigFromEnv() Config {
	return Config{
		ChunkSize:           envutil.Int("INGESTION_CHUNK_SIZE", 1000),
		ChunkOverlap:        envutil.Int("INGESTION_CHUNK_OVERLAP", 100),
		EmbedBatchSize:      envutil.Int("INGESTION_EMBED_BATCH_SIZE", 50),
		EmbedConcurrency:    envutil.Int("INGESTION_EMBED_CONCURRENCY", 4),
		IndexJobConcurrency: envutil.Int("INGESTION_JOB_CONCURRENCY", 3),
		OperationTimeout:    envutil.Duration("INGESTION_OPERATION_TIMEOUT", 300*time.Second),
	}
}

// Service is the Ingestion Core.
type Service struct {
	log       *logger.Logger
	embedder  llmgateway.Embedder
	vector    pinecone.VectorStore
	captioner loader.CaptionProvider
	cache     *cache.Cache
	cfg       Config

	jobSem chan struct{}
}

func New(log *logger.Logger, embedder llmgateway.Embedder, vector pinecone.VectorStore, gen llmgateway.Generator, chunkCache *cache.Cache, cfg Config) *Service {
	if cfg.IndexJobConcurrency <= 0 {
		cfg.IndexJobConcurrency = 3
	}
	return &Service{
		log:       log.With("service", "IngestionCore"),
		embedder:  embedder,
		vector:    vector,
		captioner: captionAdapter{gen: gen},
		cache:     chunkCache,
		cfg:       cfg,
		jobSem:    make(chan struct{}, cfg.IndexJobConcurrency),
	}
}

type captionAdapter struct{ gen llmgateway.Generator }

func (c captionAdapter) Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
	if c.gen == nil {
		return "", fmt.Errorf("no generator configured for captioning")
	}
	return c.gen.Describe(ctx, llmgateway.DescribeRequest{Data: data, MimeType: mimeType, Instruction: instruction})
}

// IndexDocument runs the full pipeline for one document's raw bytes.
// sourceURI is a path or basename used only to infer extension and default
// document_id; raw is the already-read file content (the caller is
// responsible for fetching bytes from whatever storage it uses).
func (s *Service) IndexDocument(ctx context.Context, tenantID, sourceURI string, raw []byte, opts IndexOptions) (IndexResult, error) {
	start := time.Now()
	progress := opts.OnProgress
	if progress == nil {
		progress = noopProgress
	}

	if err := validateTenant(tenantID); err != nil {
		return IndexResult{Error: err.Error()}, err
	}
	if err := validatePath(sourceURI, len(raw)); err != nil {
		return IndexResult{Error: err.Error()}, err
	}

	documentID := strings.TrimSpace(opts.DocumentID)
	if documentID == "" {
		documentID = basenameWithoutExt(sourceURI)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.cfg.ChunkSize
	}
	chunkOverlap := opts.ChunkOverlap
	if chunkOverlap < 0 {
		chunkOverlap = s.cfg.ChunkOverlap
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	s.jobSem <- struct{}{}
	defer func() { <-s.jobSem }()

	progress(ProgressEvent{DocumentID: documentID, Stage: StageChecking, Progress: 0})
	alreadyIndexed, err := s.isAlreadyIndexed(ctx, tenantID, documentID)
	if err != nil {
		progress(ProgressEvent{DocumentID: documentID, Stage: StageError, Progress: 0, Message: err.Error()})
		return IndexResult{DocumentID: documentID, Error: err.Error()}, err
	}
	if alreadyIndexed {
		progress(ProgressEvent{DocumentID: documentID, Stage: StageComplete, Progress: 100, Message: "already_indexed"})
		return IndexResult{DocumentID: documentID, Skipped: true, Reason: "already_indexed", Duration: time.Since(start)}, nil
	}

	progress(ProgressEvent{DocumentID: documentID, Stage: StagePreparing, Progress: 10})

	contentHash := sha256Hex(raw)
	baseMetadata := cloneMetadata(opts.Metadata)
	baseMetadata["content_hash"] = contentHash
	baseMetadata["source_uri"] = sourceURI

	cacheKey := cache.Key(tenantID, documentID, chunkSize, chunkOverlap)
	chunks, fromCache, err := s.loadOrChunk(ctx, cacheKey, tenantID, documentID, sourceURI, raw, baseMetadata, chunkSize, chunkOverlap)
	if err != nil {
		progress(ProgressEvent{DocumentID: documentID, Stage: StageError, Progress: 10, Message: err.Error()})
		return IndexResult{DocumentID: documentID, Error: err.Error()}, err
	}
	if fromCache {
		s.log.Debug("chunk cache hit", "tenant_id", tenantID, "document_id", documentID, "key", cacheKey)
	}

	progress(ProgressEvent{DocumentID: documentID, Stage: StageProcessing, Progress: 30, Message: fmt.Sprintf("%d chunks", len(chunks))})

	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].IndexedAt = now
	}

	if err := s.embedAndStore(ctx, tenantID, documentID, chunks, progress); err != nil {
		progress(ProgressEvent{DocumentID: documentID, Stage: StageError, Progress: 60, Message: err.Error()})
		return IndexResult{DocumentID: documentID, Error: err.Error()}, err
	}

	progress(ProgressEvent{DocumentID: documentID, Stage: StageComplete, Progress: 100})
	return IndexResult{DocumentID: documentID, Chunks: len(chunks), Duration: time.Since(start)}, nil
}

// IndexMultiple runs IndexDocument across paths, bounded by
// cfg.IndexJobConcurrency. A per-document failure is reported in its result
// and does not abort the batch.
func (s *Service) IndexMultiple(ctx context.Context, tenantID string, docs map[string][]byte, metadata map[string]any, onProgress ProgressFunc) []IndexResult {
	results := make([]IndexResult, len(docs))
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.IndexJobConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := s.IndexDocument(gctx, tenantID, path, docs[path], IndexOptions{Metadata: metadata, OnProgress: onProgress})
			if err != nil && res.Error == "" {
				res.Error = err.Error()
			}
			results[i] = res
			return nil // per-document failures don't abort the batch
		})
	}
	_ = g.Wait()
	return results
}

// DeleteDocuments removes chunks for a tenant, optionally scoped to one
// document_id. Deleting without document_id wipes all of the tenant's
// chunks but not its vector collection, per spec §4.1.
func (s *Service) DeleteDocuments(ctx context.Context, tenantID, documentID string) error {
	if err := validateTenant(tenantID); err != nil {
		return err
	}
	dim, err := s.embedder.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("delete_documents: resolve embedding dimension: %w", err)
	}
	filter := map[string]any{}
	if documentID != "" {
		filter["document_id"] = documentID
	}
	ids, err := s.vector.QueryIDs(ctx, tenantID, zeroVector(dim), 10000, filter)
	if err != nil {
		return fmt.Errorf("delete_documents: list chunk ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.vector.DeleteIDs(ctx, tenantID, ids)
}

func (s *Service) isAlreadyIndexed(ctx context.Context, tenantID, documentID string) (bool, error) {
	dim, err := s.embedder.Dimension(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve embedding dimension: %w", err)
	}
	matches, err := s.vector.QueryMatches(ctx, tenantID, zeroVector(dim), 1, map[string]any{"document_id": documentID})
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return len(matches) > 0, nil
}

func (s *Service) loadOrChunk(ctx context.Context, cacheKey, tenantID, documentID, sourceURI string, raw []byte, metadata map[string]any, chunkSize, chunkOverlap int) ([]support.Chunk, bool, error) {
	if s.cache != nil {
		if entry, err := s.cache.Get(cacheKey); err == nil && entry != nil {
			return entry.Chunks, true, nil
		}
	}

	ld, err := loader.Dispatch(filepath.Ext(sourceURI), s.captioner)
	if err != nil {
		return nil, false, err
	}
	records, err := ld.Load(ctx, sourceURI, raw, metadata)
	if err != nil {
		return nil, false, err
	}

	chunks, err := chunker.Split(ctx, chunker.Config{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, documentID, tenantID, records)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Put(cacheKey, chunks); err != nil {
			s.log.Warn("chunk cache write failed (continuing)", "key", cacheKey, "error", err)
		}
	}
	return chunks, false, nil
}

func (s *Service) embedAndStore(ctx context.Context, tenantID, documentID string, chunks []support.Chunk, progress ProgressFunc) error {
	if len(chunks) == 0 {
		return nil
	}
	batchSize := s.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	batches := batchChunks(chunks, batchSize)

	var mu sync.Mutex
	var embedded int
	total := len(chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(s.cfg.EmbedConcurrency, 1))
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed batch: expected %d vectors, got %d", len(batch), len(vecs))
			}

			vectors := make([]pinecone.Vector, len(batch))
			for i, c := range batch {
				c.Embedding = vecs[i]
				vectors[i] = pinecone.Vector{
					ID:       chunkVectorID(tenantID, documentID, c.ChunkIndex),
					Values:   vecs[i],
					Metadata: c.ToPayload(),
				}
			}
			if err := s.vector.Upsert(gctx, tenantID, vectors); err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}

			mu.Lock()
			embedded += len(batch)
			pct := 60 + int(float64(embedded)/float64(total)*35.0)
			mu.Unlock()
			progress(ProgressEvent{DocumentID: documentID, Stage: StageEmbedding, Progress: pct})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	progress(ProgressEvent{DocumentID: documentID, Stage: StageStoring, Progress: 95})
	return nil
}

func batchChunks(chunks []support.Chunk, size int) [][]support.Chunk {
	var batches [][]support.Chunk
	for i := 0; i < len(chunks); i += size {
		end := i + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[i:end])
	}
	return batches
}

// chunkVectorID is deterministic on (tenant, document, chunk_index) so
// retrying a failed batch overwrites rather than duplicates.
func chunkVectorID(tenantID, documentID string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", tenantID, documentID, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

func sha256Hex(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func basenameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func zeroVector(dim int) []float32 {
	if dim <= 0 {
		dim = 1
	}
	return make([]float32, dim)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
