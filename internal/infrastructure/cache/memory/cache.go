// Package memory is the in-process response cache used when no Redis is
// configured. Values are stored serialized so that callers never share
// decoded structures.
package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// Cache implements in-memory expiring caching
type Cache struct {
	cache *gocache.Cache
}

// New creates a memory cache. A zero cleanupInterval disables the janitor
// goroutine; expired entries are then only dropped on access.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Get decodes the value under key into dest.
func (c *Cache) Get(_ context.Context, key string, dest interface{}) error {
	val, found := c.cache.Get(key)
	if !found {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(val.([]byte), dest); err != nil {
		c.cache.Delete(key)
		return ErrCacheMiss
	}
	return nil
}

// Set stores value under key. A zero ttl uses the default.
func (c *Cache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "serialization failed")
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, data, ttl)
	return nil
}

// Delete removes values from the cache
func (c *Cache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.cache.Delete(k)
	}
	return nil
}

func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	_, found := c.cache.Get(key)
	return found, nil
}

// DeleteByPrefix removes every live key starting with prefix.
func (c *Cache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
			n++
		}
	}
	return n, nil
}

func (c *Cache) Ping(context.Context) error { return nil }

// Len is the number of entries, including expired ones not yet cleaned up.
func (c *Cache) Len() int { return c.cache.ItemCount() }
