package ingest

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits document text into bounded, overlapping chunks sized for
// embedding.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker producing chunks of at most chunkSize
// characters with the given overlap between neighbors.
func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Split partitions doc into chunks. Chunk ids are derived from the
// document id and position, so re-splitting the same document yields the
// same ids.
func (c *Chunker) Split(doc Document) ([]Chunk, error) {
	if doc.Text == "" {
		return nil, ErrEmptyDocument
	}

	pieces, err := c.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("splitting document %s: %w", doc.ID, err)
	}

	chunks := make([]Chunk, len(pieces))
	for i, text := range pieces {
		metadata := map[string]string{
			"document_id": doc.ID,
			"source":      doc.Source,
			"chunk_index": fmt.Sprintf("%d", i),
		}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}

		chunks[i] = Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID: doc.ID,
			Index:      i,
			Text:       text,
			Metadata:   metadata,
		}
	}
	return chunks, nil
}
