// Package cache provides the thread-safe generic cache behind the post stores
// and the rendered content cache.
package cache

import (
	"slices"
	"sync"
)

// Cache is a map guarded by a RWMutex. A bounded cache forgets its oldest
// entries once it holds max items.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V

	max   int // 0 means unbounded
	order []K // insertion order, only kept when bounded
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

// NewBoundedCache returns a cache holding at most max entries.
func NewBoundedCache[K comparable, V any](max int) *Cache[K, V] {
	c := NewCache[K, V]()
	if max > 0 {
		c.max = max
		c.order = make([]K, 0, max)
	}
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

// set must be called with the write lock held.
func (c *Cache[K, V]) set(key K, value V) {
	if _, exists := c.items[key]; !exists && c.max > 0 {
		if len(c.order) >= c.max {
			delete(c.items, c.order[0])
			c.order = slices.Delete(c.order, 0, 1)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = value
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// SetIfAbsent stores value only when key is not present and reports whether it did.
func (c *Cache[K, V]) SetIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		return false
	}
	c.set(key, value)
	return true
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	if c.max > 0 {
		if i := slices.Index(c.order, key); i >= 0 {
			c.order = slices.Delete(c.order, i, i+1)
		}
	}
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
	c.order = c.order[:0]
}

// SetTo replaces the whole content. Bounded caches keep at most max of the items.
func (c *Cache[K, V]) SetTo(items map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max == 0 {
		c.items = items
		return
	}
	c.items = make(map[K]V, len(items))
	c.order = c.order[:0]
	for k, v := range items {
		c.set(k, v)
	}
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Values returns a snapshot of the cached values in no particular order.
func (c *Cache[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values := make([]V, 0, len(c.items))
	for _, v := range c.items {
		values = append(values, v)
	}
	return values
}

// RenderKey identifies one rendering of a post body.
type RenderKey struct {
	ContentHash string
	// Style names the markdown flavour and highlighting theme used.
	Style string
}

// Rendered is a cached rendering.
type Rendered struct {
	HTML  []byte
}

// Edited posts leave their old renderings behind, so the cache is bounded.
const maxRendered = 1024

var rendered = NewBoundedCache[RenderKey, *Rendered](maxRendered)

func GetRendered(key RenderKey) (*Rendered, bool) {
	return rendered.Get(key)
}

func SetRendered(key RenderKey, html []byte) {
	rendered.Set(key, &Rendered{HTML: html})
}

func ClearRendered() {
	rendered.Clear()
}
