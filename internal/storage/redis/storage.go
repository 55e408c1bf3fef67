package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Similarity cache operations

func (s *Storage) GetSimilarity(ctx context.Context, a, b string) (float64, error) {
	raw, err := s.client.Get(ctx, similarityKey(a, b)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, model.ErrSimilarityNotCached
		}
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

func (s *Storage) SaveSimilarity(ctx context.Context, a, b string, score float64) error {
	value := strconv.FormatFloat(score, 'f', -1, 64)
	return s.client.Set(ctx, similarityKey(a, b), value, s.cfg.SimilarityTTL).Err()
}

// Image catalog operations

func (s *Storage) GetImageCatalog(ctx context.Context) ([]string, error) {
	key := imageCatalogKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrCatalogNotLoaded
	}

	return s.client.LRange(ctx, key, 0, -1).Result()
}

func (s *Storage) SaveImageCatalog(ctx context.Context, urls []string) error {
	key := imageCatalogKey()

	// Replace the list atomically; order is preserved for board generation
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(urls) > 0 {
		members := make([]interface{}, len(urls))
		for i, u := range urls {
			members[i] = u
		}
		pipe.RPush(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
