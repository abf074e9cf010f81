package mock

import (
	"context"
	"hash/fnv"
	"sync/atomic"
)

// Embedder produces deterministic vectors derived from the text, so tests
// can assert that identical content embeds identically. FailFirst makes
// the first N calls fail, which exercises retry paths.
type Embedder struct {
	// Dimension of produced vectors. Defaults to 8 when zero.
	Dimension int

	// FailFirst makes the first N embedding calls return Err.
	FailFirst int64

	// Err is the error returned while failing. Nil falls back to a
	// generic unavailable error.
	Err error

	calls int64
}

// Calls reports how many embedding calls were made, batch or single.
func (e *Embedder) Calls() int64 {
	return atomic.LoadInt64(&e.calls)
}

// Embed generates a deterministic vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.tick(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

// EmbedBatch generates deterministic vectors for texts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.tick(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *Embedder) tick() error {
	n := atomic.AddInt64(&e.calls, 1)
	if n <= atomic.LoadInt64(&e.FailFirst) {
		if e.Err != nil {
			return e.Err
		}
		return errEmbedUnavailable
	}
	return nil
}

func (e *Embedder) vector(text string) []float32 {
	dim := e.Dimension
	if dim <= 0 {
		dim = 8
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, dim)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int64(seed>>33)) / float32(1<<31)
	}
	return v
}

type mockErr string

func (e mockErr) Error() string { return string(e) }

const errEmbedUnavailable = mockErr("mock embedder unavailable")
