package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tessium/ingestkit/pkg/cache"
	"github.com/tessium/ingestkit/pkg/pool"
)

// TaskTranscribe is the worker-pool task type for transcription.
const TaskTranscribe pool.TaskType = "ingest.transcribe"

type transcribeRequest struct {
	audio io.Reader
}

// MediaIngestor transcribes audio/video and feeds the transcript through a
// DocumentIngestor. Transcripts are cached by media id so re-ingesting the
// same media never transcribes twice within the cache's validity window.
type MediaIngestor struct {
	transcriber Transcriber
	docs        *DocumentIngestor
	transcripts *cache.Cache[string]
	pool        *pool.Pool
	logger      *slog.Logger
}

// MediaOption configures a MediaIngestor.
type MediaOption func(*MediaIngestor) error

// WithTranscriptCache caches transcripts under "transcript:<mediaID>".
func WithTranscriptCache(c *cache.Cache[string]) MediaOption {
	return func(m *MediaIngestor) error {
		m.transcripts = c
		return nil
	}
}

// WithTranscriptionPool routes transcription through a worker pool, which
// bounds how many transcriptions run at once and enforces the pool's hard
// per-task timeout on each.
func WithTranscriptionPool(p *pool.Pool) MediaOption {
	return func(m *MediaIngestor) error {
		if p == nil {
			return nil
		}
		err := p.RegisterHandler(TaskTranscribe, func(ctx context.Context, payload any) (any, error) {
			req, ok := payload.(transcribeRequest)
			if !ok {
				return nil, fmt.Errorf("unexpected payload type %T", payload)
			}
			return m.transcriber.Transcribe(ctx, req.audio)
		})
		if err != nil {
			return err
		}
		m.pool = p
		return nil
	}
}

// WithMediaLogger sets a custom logger. Default is slog.Default.
func WithMediaLogger(logger *slog.Logger) MediaOption {
	return func(m *MediaIngestor) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// NewMediaIngestor creates a media ingestor.
func NewMediaIngestor(transcriber Transcriber, docs *DocumentIngestor, opts ...MediaOption) (*MediaIngestor, error) {
	if transcriber == nil {
		return nil, ErrTranscriberRequired
	}
	if docs == nil {
		return nil, ErrIngestorRequired
	}

	m := &MediaIngestor{
		transcriber: transcriber,
		docs:        docs,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "media-ingestor")

	return m, nil
}

// Ingest transcribes the media (or reuses a cached transcript) and ingests
// the transcript as a document whose id is the media id.
func (m *MediaIngestor) Ingest(ctx context.Context, media Media, audio io.Reader) (*Result, error) {
	text, err := m.transcript(ctx, media, audio)
	if err != nil {
		return nil, fmt.Errorf("transcribing media %s: %w", media.ID, err)
	}

	return m.docs.Ingest(ctx, Document{
		ID:       media.ID,
		Source:   media.Source,
		Text:     text,
		Metadata: media.Metadata,
	})
}

func (m *MediaIngestor) transcript(ctx context.Context, media Media, audio io.Reader) (string, error) {
	if m.transcripts == nil {
		return m.transcribe(ctx, audio)
	}
	return m.transcripts.GetOrFetch(ctx, cache.Key("transcript", media.ID),
		func(ctx context.Context) (string, error) {
			return m.transcribe(ctx, audio)
		})
}

func (m *MediaIngestor) transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if m.pool == nil {
		return m.transcriber.Transcribe(ctx, audio)
	}

	fut, err := m.pool.Submit(TaskTranscribe, transcribeRequest{audio: audio})
	if err != nil {
		return "", err
	}
	value, err := fut.Wait(ctx)
	if err != nil {
		return "", err
	}

	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected transcription result type %T", value)
	}
	return text, nil
}
