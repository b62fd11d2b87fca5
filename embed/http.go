package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// httpEmbedder posts text to an OpenAI-compatible embedding endpoint.
// Every call runs under a hard timeout; non-success status codes and
// malformed response bodies surface as errors from the client.
type httpEmbedder struct {
	embedder  embeddings.Embedder
	dimension int
	timeout   time.Duration
	logger    *slog.Logger
}

var _ Embedder = (*httpEmbedder)(nil)

// NewHTTP creates the HTTP embedder from the provided configuration.
// Uses "none" as the token for local services that don't require auth.
func NewHTTP(config *Config) (Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &httpEmbedder{
		embedder:  embedder,
		dimension: config.Dimension,
		timeout:   config.Timeout,
		logger:    slog.Default().With("component", "http-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *httpEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings under the
// configured hard timeout.
func (e *httpEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug("generating embeddings", "count", len(texts))

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vecs))
	}
	for i, vec := range vecs {
		if len(vec) == 0 {
			return nil, fmt.Errorf("embedding service returned empty vector for text %d", i)
		}
	}

	return vecs, nil
}

// Dimension returns the expected vector length from configuration.
func (e *httpEmbedder) Dimension() int {
	return e.dimension
}
