package mock

import (
	"context"
	"io"
	"sync/atomic"
)

// Transcriber returns a fixed transcript and counts invocations, so tests
// can assert that a cached transcript skips the transcription call.
type Transcriber struct {
	// Transcript is the text returned for every call.
	Transcript string

	// Err, when set, is returned instead of the transcript.
	Err error

	// Block, when set, makes Transcribe wait for ctx cancellation,
	// useful for exercising pool timeouts.
	Block bool

	calls int64
}

// Calls reports how many times Transcribe ran.
func (t *Transcriber) Calls() int64 {
	return atomic.LoadInt64(&t.calls)
}

// Transcribe returns the configured transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	atomic.AddInt64(&t.calls, 1)

	if t.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if t.Err != nil {
		return "", t.Err
	}
	return t.Transcript, nil
}
