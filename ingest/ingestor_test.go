package ingest_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessium/ingestkit/ingest"
	"github.com/tessium/ingestkit/ingest/mock"
	"github.com/tessium/ingestkit/pkg/batch"
	"github.com/tessium/ingestkit/pkg/cache"
)

func newTestProcessor(t *testing.T) *batch.Processor {
	t.Helper()

	proc, err := batch.NewProcessor(&batch.Config{
		BatchSize:         5,
		ConcurrentBatches: 2,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
	})
	require.NoError(t, err)
	return proc
}

func longDocument(id string) ingest.Document {
	return ingest.Document{
		ID:     id,
		Source: "test",
		Text:   strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60),
	}
}

func TestNewDocumentIngestorValidation(t *testing.T) {
	embedder := &mock.Embedder{}
	store := &mock.VectorStore{}
	proc := newTestProcessor(t)

	_, err := ingest.NewDocumentIngestor(nil, store, proc)
	assert.ErrorIs(t, err, ingest.ErrEmbedderRequired)

	_, err = ingest.NewDocumentIngestor(embedder, nil, proc)
	assert.ErrorIs(t, err, ingest.ErrStoreRequired)

	_, err = ingest.NewDocumentIngestor(embedder, store, nil)
	assert.ErrorIs(t, err, ingest.ErrProcessorRequired)
}

func TestIngestStoresAllChunks(t *testing.T) {
	embedder := &mock.Embedder{}
	store := &mock.VectorStore{}
	in, err := ingest.NewDocumentIngestor(embedder, store, newTestProcessor(t),
		ingest.WithChunker(ingest.NewChunker(200, 40)))
	require.NoError(t, err)

	result, err := in.Ingest(context.Background(), longDocument("doc-1"))
	require.NoError(t, err)

	assert.Greater(t, result.TotalChunks, 1)
	assert.Equal(t, result.TotalChunks, result.StoredChunks)
	assert.Zero(t, result.FailedChunks)
	assert.Empty(t, result.Failures)
	assert.Equal(t, result.TotalChunks, store.Len())
	assert.True(t, store.Has("doc-1:0"))
}

func TestIngestEmptyDocument(t *testing.T) {
	in, err := ingest.NewDocumentIngestor(&mock.Embedder{}, &mock.VectorStore{}, newTestProcessor(t))
	require.NoError(t, err)

	_, err = in.Ingest(context.Background(), ingest.Document{ID: "empty"})
	assert.ErrorIs(t, err, ingest.ErrEmptyDocument)
}

func TestIngestRetriesTransientStoreFailures(t *testing.T) {
	embedder := &mock.Embedder{}
	store := &mock.VectorStore{FailFirst: 2}
	in, err := ingest.NewDocumentIngestor(embedder, store, newTestProcessor(t),
		ingest.WithChunker(ingest.NewChunker(200, 40)))
	require.NoError(t, err)

	result, err := in.Ingest(context.Background(), longDocument("doc-2"))
	require.NoError(t, err)

	assert.Equal(t, result.TotalChunks, result.StoredChunks)
	assert.Zero(t, result.FailedChunks)
	assert.Positive(t, result.Run.RetriedAttempts)
	assert.Greater(t, store.Upserts(), result.TotalChunks, "failed upserts were retried")
}

func TestIngestReportsPartialFailure(t *testing.T) {
	// With zero retries, the first failing upserts become terminal chunk
	// failures while the rest of the document still lands.
	proc, err := batch.NewProcessor(&batch.Config{
		BatchSize:         5,
		ConcurrentBatches: 1,
		MaxRetries:        0,
		RetryDelay:        time.Millisecond,
	})
	require.NoError(t, err)

	store := &mock.VectorStore{FailFirst: 2}
	in, err := ingest.NewDocumentIngestor(&mock.Embedder{}, store, proc,
		ingest.WithChunker(ingest.NewChunker(200, 40)))
	require.NoError(t, err)

	result, err := in.Ingest(context.Background(), longDocument("doc-3"))
	require.NoError(t, err, "partial failure is reported, not returned")

	assert.Equal(t, 2, result.FailedChunks)
	assert.Equal(t, result.TotalChunks-2, result.StoredChunks)
	require.Len(t, result.Failures, 2)
	for _, f := range result.Failures {
		assert.Contains(t, f.ChunkID, "doc-3:")
		assert.Error(t, f.Err)
	}
}

func TestIngestEmbeddingCacheSkipsEmbedder(t *testing.T) {
	embeddings, err := cache.New[[]float32](&cache.Config{
		TTL:           time.Minute,
		Capacity:      100,
		SweepInterval: time.Minute,
		Enabled:       true,
	})
	require.NoError(t, err)

	embedder := &mock.Embedder{}
	store := &mock.VectorStore{}
	in, err := ingest.NewDocumentIngestor(embedder, store, newTestProcessor(t),
		ingest.WithChunker(ingest.NewChunker(200, 40)),
		ingest.WithEmbeddingCache(embeddings))
	require.NoError(t, err)

	first, err := in.Ingest(context.Background(), longDocument("doc-4"))
	require.NoError(t, err)
	callsAfterFirst := embedder.Calls()
	require.Positive(t, callsAfterFirst)

	// Same content re-ingested: every embedding is served from cache.
	second, err := in.Ingest(context.Background(), longDocument("doc-4"))
	require.NoError(t, err)

	assert.Equal(t, first.TotalChunks, second.TotalChunks)
	assert.Equal(t, callsAfterFirst, embedder.Calls(), "cached embeddings skip the embedder")
	assert.Equal(t, first.TotalChunks, store.Len(), "re-ingestion overwrites, not duplicates")
}

func TestIngestConcurrentDocuments(t *testing.T) {
	embedder := &mock.Embedder{}
	store := &mock.VectorStore{}
	in, err := ingest.NewDocumentIngestor(embedder, store, newTestProcessor(t),
		ingest.WithChunker(ingest.NewChunker(200, 40)))
	require.NoError(t, err)

	done := make(chan error, 2)
	for _, id := range []string{"doc-a", "doc-b"} {
		go func(id string) {
			_, err := in.Ingest(context.Background(), longDocument(id))
			done <- err
		}(id)
	}
	for i := 0; i < 2; i++ {
		assert.NoError(t, <-done)
	}

	assert.True(t, store.Has("doc-a:0"))
	assert.True(t, store.Has("doc-b:0"))
}
