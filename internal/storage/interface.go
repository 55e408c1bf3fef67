package storage

import "context"

// Storage defines the interface for the server's shared lookup data.
// Room state itself lives in memory inside each session.
type Storage interface {
	// Similarity cache operations
	GetSimilarity(ctx context.Context, a, b string) (float64, error)
	SaveSimilarity(ctx context.Context, a, b string, score float64) error

	// Image catalog operations
	GetImageCatalog(ctx context.Context) ([]string, error)
	SaveImageCatalog(ctx context.Context, urls []string) error
}

// PairKey returns an order-independent key for a word pair, so that
// (a, b) and (b, a) share one cache entry
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
