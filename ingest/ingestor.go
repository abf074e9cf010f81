package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/tessium/ingestkit/pkg/batch"
	"github.com/tessium/ingestkit/pkg/cache"
)

// ChunkFailure identifies a chunk that could not be embedded and stored.
type ChunkFailure struct {
	ChunkID string
	Err     error
}

// Result reports the outcome of one ingestion. FailedChunks > 0 is partial
// success, not an error: callers get both the stored count and the failed
// chunk ids with reasons.
type Result struct {
	DocumentID   string
	TotalChunks  int
	StoredChunks int
	FailedChunks int
	Failures     []ChunkFailure

	// Run carries the underlying batch run metrics (retries, latency).
	Run batch.RunSnapshot
}

// DocumentIngestor drives a document through chunking, embedding, and
// vector upserts using the batch processor, with an optional embedding
// cache keyed by chunk content.
type DocumentIngestor struct {
	embedder   Embedder
	store      VectorStore
	proc       *batch.Processor
	chunker    *Chunker
	embeddings *cache.Cache[[]float32]
	logger     *slog.Logger
}

// IngestorOption configures a DocumentIngestor.
type IngestorOption func(*DocumentIngestor)

// WithChunker overrides the default chunker (512 characters, 64 overlap).
func WithChunker(c *Chunker) IngestorOption {
	return func(in *DocumentIngestor) {
		if c != nil {
			in.chunker = c
		}
	}
}

// WithEmbeddingCache caches embeddings by chunk content hash, so
// re-ingested or repeated content skips the embedding call.
func WithEmbeddingCache(c *cache.Cache[[]float32]) IngestorOption {
	return func(in *DocumentIngestor) {
		in.embeddings = c
	}
}

// WithLogger sets a custom logger. Default is slog.Default.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(in *DocumentIngestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// NewDocumentIngestor creates a document ingestor.
func NewDocumentIngestor(embedder Embedder, store VectorStore, proc *batch.Processor, opts ...IngestorOption) (*DocumentIngestor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if proc == nil {
		return nil, ErrProcessorRequired
	}

	in := &DocumentIngestor{
		embedder: embedder,
		store:    store,
		proc:     proc,
		chunker:  NewChunker(512, 64),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.With("component", "document-ingestor")

	return in, nil
}

// Ingest splits doc into chunks and drives every chunk through embedding
// and upsert, with bounded concurrency and retry. It returns once every
// chunk has reached a terminal state.
func (in *DocumentIngestor) Ingest(ctx context.Context, doc Document) (*Result, error) {
	chunks, err := in.chunker.Split(doc)
	if err != nil {
		return nil, err
	}

	in.logger.Info("ingesting document", "document", doc.ID, "chunks", len(chunks))

	run, err := batch.Process(in.proc, ctx, chunks, in.processChunk,
		batch.WithRunID("ingest-"+doc.ID))
	if err != nil {
		return nil, fmt.Errorf("ingesting document %s: %w", doc.ID, err)
	}

	result := &Result{
		DocumentID:   doc.ID,
		TotalChunks:  run.TotalItems,
		StoredChunks: run.ProcessedItems,
		FailedChunks: run.FailedItems,
		Run:          run,
	}
	for _, f := range run.Failures {
		result.Failures = append(result.Failures, ChunkFailure{
			ChunkID: chunks[f.Index].ID,
			Err:     f.Err,
		})
	}

	if result.FailedChunks > 0 {
		in.logger.Warn("document ingested with failures",
			"document", doc.ID, "stored", result.StoredChunks, "failed", result.FailedChunks)
	}
	return result, nil
}

// processChunk embeds one chunk and upserts it. Safe to re-invoke: the
// upsert key is the chunk id and the embedding lookup is content-addressed.
func (in *DocumentIngestor) processChunk(ctx context.Context, chunk Chunk) error {
	vector, err := in.embed(ctx, chunk.Text)
	if err != nil {
		return fmt.Errorf("embedding chunk %s: %w", chunk.ID, err)
	}

	if err := in.store.Upsert(ctx, chunk.ID, vector, chunk.Metadata); err != nil {
		return fmt.Errorf("upserting chunk %s: %w", chunk.ID, err)
	}
	return nil
}

func (in *DocumentIngestor) embed(ctx context.Context, text string) ([]float32, error) {
	if in.embeddings == nil {
		return in.embedder.Embed(ctx, text)
	}
	return in.embeddings.GetOrFetch(ctx, contentKey(text),
		func(ctx context.Context) ([]float32, error) {
			return in.embedder.Embed(ctx, text)
		})
}

// contentKey hashes chunk text into a stable cache key.
func contentKey(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return cache.Key("embedding", fmt.Sprintf("%016x", h.Sum64()))
}
