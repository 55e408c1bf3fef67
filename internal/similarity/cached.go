package similarity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/storage"
)

// CachedOracle memoises successful scores from another oracle.
// Failures are never cached so a recovered service is used again.
type CachedOracle struct {
	inner  Oracle
	store  storage.Storage
	logger *slog.Logger
}

// NewCachedOracle wraps inner with a cache backed by store
func NewCachedOracle(inner Oracle, store storage.Storage, logger *slog.Logger) *CachedOracle {
	return &CachedOracle{
		inner:  inner,
		store:  store,
		logger: logger.With(slog.String("component", "similarity-cache")),
	}
}

// Ensure CachedOracle implements Oracle
var _ Oracle = (*CachedOracle)(nil)

// Similarity returns the cached score for the normalized pair, falling
// through to the wrapped oracle on a miss
func (o *CachedOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	a, b = Normalize(a), Normalize(b)

	score, err := o.store.GetSimilarity(ctx, a, b)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, model.ErrSimilarityNotCached) {
		// Cache errors are logged and bypassed
		o.logger.Warn("similarity cache read failed", slog.String("error", err.Error()))
	}

	score, err = o.inner.Similarity(ctx, a, b)
	if err != nil {
		return 0, err
	}

	if err := o.store.SaveSimilarity(ctx, a, b, score); err != nil {
		o.logger.Warn("similarity cache write failed", slog.String("error", err.Error()))
	}
	return score, nil
}
