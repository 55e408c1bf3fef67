package memory

import (
	"context"
	"sync"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	similarities map[string]float64
	catalog      []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		similarities: make(map[string]float64),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Similarity cache operations

func (s *Storage) GetSimilarity(ctx context.Context, a, b string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.similarities[storage.PairKey(a, b)]
	if !ok {
		return 0, model.ErrSimilarityNotCached
	}
	return score, nil
}

func (s *Storage) SaveSimilarity(ctx context.Context, a, b string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.similarities[storage.PairKey(a, b)] = score
	return nil
}

// Image catalog operations

func (s *Storage) GetImageCatalog(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return nil, model.ErrCatalogNotLoaded
	}
	result := make([]string, len(s.catalog))
	copy(result, s.catalog)
	return result, nil
}

func (s *Storage) SaveImageCatalog(ctx context.Context, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(urls) == 0 {
		s.catalog = nil
		return nil
	}
	s.catalog = make([]string, len(urls))
	copy(s.catalog, urls)
	return nil
}
