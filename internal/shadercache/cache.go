// Package shadercache compiles WGSL to SPIR-V with naga and keeps the
// results in a sharded LRU cache keyed by source hash.
package shadercache

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
)

// ErrInvalidSPIRV is returned for SPIR-V binaries that are not a whole
// number of 32-bit words.
var ErrInvalidSPIRV = errors.New("interpose: SPIR-V length is not a multiple of 4")

const (
	// ShardCount must be a power of two.
	ShardCount = 16

	// DefaultCapacity is the per-shard entry limit.
	DefaultCapacity = 64

	shardMask = ShardCount - 1
)

// Option configures a Cache.
type Option func(*naga.CompileOptions)

// WithValidation toggles naga IR validation before code generation.
func WithValidation(enabled bool) Option {
	return func(o *naga.CompileOptions) { o.Validate = enabled }
}

// WithDebug toggles debug names and line info in the output.
func WithDebug(enabled bool) Option {
	return func(o *naga.CompileOptions) { o.Debug = enabled }
}

// Stats reports cache activity.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	source string
	words  []uint32
	node   *node
}

type shard struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	order   lru
}

// Cache is safe for concurrent use.
type Cache struct {
	shards   [ShardCount]*shard
	capacity int
	opts     naga.CompileOptions

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding up to capacity modules per shard. If
// capacity <= 0, DefaultCapacity is used.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{capacity: capacity, opts: naga.DefaultOptions()}
	for _, opt := range opts {
		opt(&c.opts)
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[uint64]*entry)}
	}
	return c
}

// Hash returns the FNV-1a hash of source.
func Hash(source string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source)) // fnv.Write never returns an error
	return h.Sum64()
}

// Compile returns the SPIR-V words of source, compiling on a miss. The
// compile runs under the shard lock so concurrent requests for the same
// source compile once. Failures are not cached.
//
// The returned slice is shared; callers must not modify it.
func (c *Cache) Compile(source string) ([]uint32, error) {
	key := Hash(source)
	s := c.shards[key&shardMask]

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.source == source {
		s.order.moveToFront(e.node)
		c.hits.Add(1)
		return e.words, nil
	}
	c.misses.Add(1)

	spirv, err := naga.CompileWithOptions(source, c.opts)
	if err != nil {
		return nil, err
	}
	words, err := Words(spirv)
	if err != nil {
		return nil, err
	}

	if old, ok := s.entries[key]; ok {
		// Hash collision with a different source: replace.
		old.words = words
		old.source = source
		s.order.moveToFront(old.node)
		return words, nil
	}
	for s.order.len >= c.capacity {
		oldest, ok := s.order.removeOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[key] = &entry{source: source, words: words, node: s.order.pushFront(key)}
	return words, nil
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Clear drops every cached module.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		clear(s.entries)
		s.order.clear()
		s.mu.Unlock()
	}
}

// Stats returns current statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Words converts a SPIR-V binary to little-endian 32-bit words.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}
