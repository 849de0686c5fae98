package cache

import "time"

// LayeredCache composes a fast memory layer over a durable one.
type LayeredCache struct {
	memory  Cache
	durable Cache
}

// NewLayeredCache creates a memory-over-durable cache.
func NewLayeredCache(memory, durable Cache) *LayeredCache {
	return &LayeredCache{memory: memory, durable: durable}
}

// Get checks the memory layer first, promoting durable hits.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.durable.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.durable.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.durable.Delete(key)
}

// Close closes both layers, reporting the durable layer's error.
func (c *LayeredCache) Close() error {
	_ = c.memory.Close()
	return c.durable.Close()
}
