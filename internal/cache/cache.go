// Package cache provides the key-value store for search results and
// fetched documents. Instances are constructed explicitly and passed
// by reference to the retrieval component with an open/close
// lifecycle; there is no process-wide singleton.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Close() error
}

// Key generates a cache key from a namespace and a raw lookup value
// (a search query or a URL).
func Key(namespace, raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "foresight:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}
