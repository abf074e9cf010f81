// Package openai implements ingest.Embedder against OpenAI-compatible
// embedding APIs, including self-hosted services that expose the same
// surface.
package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds connection settings for the embedding API.
type Config struct {
	// BaseURL is the API endpoint, e.g. "https://api.openai.com/v1" or a
	// local OpenAI-compatible server.
	BaseURL string

	// Token authenticates the client. Local services that skip auth still
	// need a placeholder value.
	Token string

	// Model is the embedding model name.
	Model string
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL required")
	}
	if c.Model == "" {
		return errors.New("embedding model required")
	}
	return nil
}

// Embedder generates embeddings through an OpenAI-compatible API.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewEmbedder creates an embedder from the given configuration.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	token := cfg.Token
	if token == "" {
		// Local OpenAI-compatible services accept any token.
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("embedding text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for several texts in one call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding batch", "count", len(texts))
	return e.embedder.EmbedDocuments(ctx, texts)
}
