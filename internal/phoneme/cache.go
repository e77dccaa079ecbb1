package phoneme

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Cache memoises tokenizer output keyed by the exact input string. Because
// tokenization is deterministic, two goroutines racing to fill the same key
// store identical values, so no coordination beyond [sync.Map] is needed.
//
// Once the cache holds maxEntries keys new results are no longer stored.
type Cache struct {
	entries    sync.Map // string -> []Token
	size       atomic.Int64
	maxEntries int64
}

// NewCache returns a cache holding at most maxEntries keys. A non-positive
// maxEntries disables memoisation.
func NewCache(maxEntries int) *Cache {
	return &Cache{maxEntries: int64(maxEntries)}
}

// Get returns a copy of the cached tokens for key.
func (c *Cache) Get(key string) ([]Token, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]Token)), true
}

// Put stores a copy of tokens under key unless the cache is full.
func (c *Cache) Put(key string, tokens []Token) {
	if c == nil || c.maxEntries <= 0 {
		return
	}
	if c.size.Load() >= c.maxEntries {
		return
	}
	if _, loaded := c.entries.LoadOrStore(key, slices.Clone(tokens)); !loaded {
		c.size.Add(1)
	}
}

// Len returns the number of stored keys.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return int(c.size.Load())
}
