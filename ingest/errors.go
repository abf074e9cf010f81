package ingest

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrProcessorRequired is returned when a batch processor is not provided.
	ErrProcessorRequired = errors.New("batch processor required")

	// ErrTranscriberRequired is returned when a transcriber is not provided.
	ErrTranscriberRequired = errors.New("transcriber required")

	// ErrIngestorRequired is returned when a document ingestor is not provided.
	ErrIngestorRequired = errors.New("document ingestor required")

	// ErrEmptyDocument is returned when a document has no text to chunk.
	ErrEmptyDocument = errors.New("document has no text")
)
