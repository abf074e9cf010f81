package ingest

import (
	"context"
	"io"
)

// Embedder generates vector embeddings from text. Implementations must be
// safe for concurrent use; calls may be slow and may fail transiently.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for several texts in one call,
	// returned in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the remote vector index. Upsert must be idempotent at the
// id level: the ingestors deliver at least once.
type VectorStore interface {
	// Upsert stores or replaces the vector under id.
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error

	// Query returns the topK closest matches to vector, optionally
	// restricted by metadata filters.
	Query(ctx context.Context, vector []float32, filters map[string]string, topK int) ([]Match, error)
}

// Transcriber extracts text from an audio stream.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Match is one vector-store query result.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Document is a unit of long-form text to ingest.
type Document struct {
	// ID identifies the document; chunk ids are derived from it, which
	// makes re-ingestion overwrite rather than duplicate.
	ID string

	// Source records where the text came from (URL, filename, channel).
	Source string

	Text     string
	Metadata map[string]string
}

// Chunk is a bounded piece of a document, the unit the batch processor
// fans out.
type Chunk struct {
	// ID is DocumentID plus the chunk's position, stable across
	// re-ingestion of the same document.
	ID string

	DocumentID string
	Index      int
	Text       string
	Metadata   map[string]string
}

// Media is an audio or video source to transcribe and ingest.
type Media struct {
	ID       string
	Source   string
	Metadata map[string]string
}
