package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/vitrineai/semdex/core"
)

// NewEmbedder builds the embedder selected by the configuration, wrapped in
// the bounded retry helper. The provider branch is taken exactly once, here;
// callers hold a single strategy object afterwards.
func NewEmbedder(config *Config) (Embedder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		inner Embedder
		err   error
	)
	switch config.Provider {
	case ProviderDeterministic:
		inner, err = NewDeterministic(config.Dimension)
	case ProviderHTTP:
		inner, err = NewHTTP(config)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, config.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &retryingEmbedder{
		inner:       inner,
		maxAttempts: config.MaxAttempts,
		baseDelay:   config.RetryDelay,
	}, nil
}

// retryingEmbedder retries the wrapped embedder with linear backoff. Once
// attempts are exhausted the failure propagates as a terminal indexing error.
type retryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
}

var _ Embedder = (*retryingEmbedder)(nil)

func (r *retryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := core.RetryWithBackoff(ctx, func() error {
		var err error
		vec, err = r.inner.EmbedText(ctx, text)
		return err
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", core.ErrEmbeddingFailed, r.maxAttempts, err)
	}
	return vec, nil
}

func (r *retryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := core.RetryWithBackoff(ctx, func() error {
		var err error
		vecs, err = r.inner.EmbedTexts(ctx, texts)
		return err
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", core.ErrEmbeddingFailed, r.maxAttempts, err)
	}
	return vecs, nil
}

func (r *retryingEmbedder) Dimension() int {
	return r.inner.Dimension()
}
