package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is a Cache with TTL and size-based eviction.
type LRUCache[T any] struct {
	lru *expirable.LRU[string, T]
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache creates a new LRU cache with TTL. A non-positive ttl disables expiry.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRUCache[T]{lru: expirable.NewLRU[string, T](maxSize, nil, ttl)}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.lru.Add(key, data)
}

func (c *LRUCache[T]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			n++
		}
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	return c.lru.Len()
}
