package redis

import (
	"fmt"

	"github.com/mcoot/shadowtag/internal/storage"
)

// Key prefix for all shadowtag data
const keyPrefix = "shadowtag"

// similarityKey returns the Redis key for a cached word-pair score
func similarityKey(a, b string) string {
	return fmt.Sprintf("%s:similarity:%s", keyPrefix, storage.PairKey(a, b))
}

// imageCatalogKey returns the Redis key for the image URL list
func imageCatalogKey() string {
	return fmt.Sprintf("%s:image_catalog", keyPrefix)
}
