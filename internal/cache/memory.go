/*
MIT License

Copyright (c) 2025 Yuval Adar <adary@adary.org>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cache

import (
	"math"
	"slices"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/adaryorg/ngallery/internal/logging"
)

// MemoryCache bounds the total resident size of decoded objects. Entry count is
// unbounded; only the byte budget triggers eviction.
type MemoryCache struct {
	lru      *simplelru.LRU[string, Object]
	maxBytes int64
	total    int64

	mu sync.Mutex
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory tier with the given byte budget
func NewMemoryCache(maxBytes int64) *MemoryCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryMaxBytes
	}

	// NewLRU only fails for a non-positive size
	lru, _ := simplelru.NewLRU[string, Object](math.MaxInt, nil)

	return &MemoryCache{
		lru:      lru,
		maxBytes: maxBytes,
	}
}

// IsCached reports whether key is resident
func (c *MemoryCache) IsCached(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// CachedObject returns the resident object for key without changing recency
func (c *MemoryCache) CachedObject(key string) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Peek(key)
}

// Insert stores obj under key unless key is already resident. The first writer
// wins; the return value tells the caller whether to charge the bytes via Touch.
func (c *MemoryCache) Insert(key string, obj Object) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(key) {
		return false
	}
	c.lru.Add(key, obj)
	return true
}

func (c *MemoryCache) Touch(key string, isNew bool, addedBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isNew {
		c.total += addedBytes
		for c.total >= c.maxBytes {
			if c.lru.Len() == 0 {
				// Nothing left to charge against
				c.total = 0
				break
			}
			c.evictOldestLocked()
		}
	}

	// Get bumps recency; a key evicted above is simply not reinserted
	c.lru.Get(key)
}

// EvictOldest drops the least recently touched object
func (c *MemoryCache) EvictOldest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictOldestLocked()
}

func (c *MemoryCache) evictOldestLocked() {
	key, obj, ok := c.lru.RemoveOldest()
	if !ok {
		return
	}
	if obj != nil {
		c.total -= obj.Size()
	}
	if c.total < 0 {
		c.total = 0
	}
	logging.Debug("memory cache evicted %s (total %d/%d bytes)", key, c.total, c.maxBytes)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the running byte total
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// MaxBytes returns the configured budget
func (c *MemoryCache) MaxBytes() int64 {
	return c.maxBytes
}

// Keys returns resident keys, most recently touched first
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	keys := c.lru.Keys()
	c.mu.Unlock()

	slices.Reverse(keys)
	return keys
}

// Clear drops every object
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.total = 0
}
