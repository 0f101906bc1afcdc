// Package pointcache memoizes per-point lookup outcomes behind a
// sharded LRU, so a grid point revisited within a run never hits the
// network twice.
package pointcache

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	numShards       = 16
	defaultCapacity = 65536
)

type Cache[V any] struct {
	shards [numShards]*lru.Cache[string, V]
}

// New spreads capacity evenly across shards. capacity <= 0 falls back
// to the default.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	per := capacity / numShards
	if per < 1 {
		per = 1
	}
	c := &Cache[V]{}
	for i := range c.shards {
		s, _ := lru.New[string, V](per)
		c.shards[i] = s
	}
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.pick(key).Get(key)
}

func (c *Cache[V]) Add(key string, v V) {
	c.pick(key).Add(key, v)
}

func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

func (c *Cache[V]) pick(key string) *lru.Cache[string, V] {
	h := xxhash.Sum64String(key)
	return c.shards[h&(numShards-1)]
}
