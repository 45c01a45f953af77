// Package renderpass caches render pass objects by compatibility class.
//
// Two pipelines whose attachments share formats and sample count can run
// inside the same pass. The cache builds one pass per class on first use
// and returns it on every later request; entries are never evicted.
package renderpass

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Key is the compatibility class of a render pass. Attachment load and
// store operations are left out: passes that differ only in them are
// compatible, so they share a class and may use the same pipelines.
type Key struct {
	ColorFormats []gputypes.TextureFormat
	DepthFormat  gputypes.TextureFormat
	Samples      uint32
}

// Equal reports whether k and o describe the same class.
func (k Key) Equal(o Key) bool {
	return k.DepthFormat == o.DepthFormat &&
		k.Samples == o.Samples &&
		slices.Equal(k.ColorFormats, o.ColorFormats)
}

// Clone returns a copy of k that shares no memory with it.
func (k Key) Clone() Key {
	k.ColorFormats = slices.Clone(k.ColorFormats)
	return k
}

// Hasher computes the bucket of a key.
type Hasher func(Key) uint64

// Option configures a Cache.
type Option func(*config)

type config struct {
	hasher Hasher
}

// WithHasher replaces the FNV-1a key hash.
func WithHasher(h Hasher) Option {
	return func(c *config) {
		if h != nil {
			c.hasher = h
		}
	}
}

type entry[V any] struct {
	key   Key
	value V
}

// Cache maps keys to built passes. It is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.RWMutex
	buckets map[uint64][]*entry[V]
	len     int
	hasher  Hasher

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	cfg := config{hasher: Hash}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		buckets: make(map[uint64][]*entry[V]),
		hasher:  cfg.hasher,
	}
}

// Get returns the pass for k, calling build under the write lock if none
// exists. A failed build caches nothing.
func (c *Cache[V]) Get(k Key, build func(Key) (V, error)) (V, error) {
	h := c.hasher(k)

	c.mu.RLock()
	if e := find(c.buckets[h], k); e != nil {
		v := e.value
		c.mu.RUnlock()
		c.hits.Add(1)
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e := find(c.buckets[h], k); e != nil {
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	v, err := build(k)
	if err != nil {
		var zero V
		return zero, err
	}
	c.buckets[h] = append(c.buckets[h], &entry[V]{key: k.Clone(), value: v})
	c.len++
	return v, nil
}

// Len returns the number of cached passes.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.len
}

// Stats returns the hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Drain removes every entry, passing each value to release.
func (c *Cache[V]) Drain(release func(V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, bucket := range c.buckets {
		for _, e := range bucket {
			release(e.value)
		}
	}
	clear(c.buckets)
	c.len = 0
}

func find[V any](bucket []*entry[V], k Key) *entry[V] {
	for _, e := range bucket {
		if e.key.Equal(k) {
			return e
		}
	}
	return nil
}
