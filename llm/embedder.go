package llm

import (
	"context"
	"log/slog"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder embeds text through a remote embedding endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewEmbedder wraps a langchaingo embedder client.
func NewEmbedder(client embeddings.EmbedderClient, logger *slog.Logger) (*Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}
	return &Embedder{embedder: embedder, logger: logger.With("component", "embedder")}, nil
}

// NewOpenAIEmbedder connects to an OpenAI compatible embedding endpoint.
func NewOpenAIEmbedder(config Config, logger *slog.Logger) (*Embedder, error) {
	token := config.Token
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, helper.NewError("create openai embedding client", err)
	}
	return NewEmbedder(client, logger)
}

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("Failed to generate embedding", slog.String("error", err.Error()))
		return nil, helper.NewError("embed", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

// EmbedBatch returns embeddings for several texts in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, helper.NewError("embed batch", err)
	}
	return vectors, nil
}
