package cache

import (
	"container/list"
	"sync"
)

type entry[V any] struct {
	key   string
	value V
	size  int64
}

// LRU is a thread-safe least-recently-used cache bounded by item count and
// total size.
type LRU[V any] struct {
	mu           sync.Mutex
	maxItems     int
	maxSizeBytes int64
	currentSize  int64
	items        map[string]*list.Element
	evictionList *list.List

	hits      int64
	misses    int64
	evictions int64
}

// NewLRU creates a new LRU cache with the given limits.
// maxItems: maximum number of items (0 = unlimited).
// maxSizeBytes: maximum total size in bytes (0 = unlimited).
func NewLRU[V any](maxItems int, maxSizeBytes int64) *LRU[V] {
	return &LRU[V]{
		maxItems:     maxItems,
		maxSizeBytes: maxSizeBytes,
		items:        make(map[string]*list.Element),
		evictionList: list.New(),
	}
}

// Get retrieves a value from the cache.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.evictionList.MoveToFront(elem)
		c.hits++
		return elem.Value.(*entry[V]).value, true
	}

	c.misses++
	var zero V
	return zero, false
}

// Put adds or updates a value. size is the approximate cost of the value in
// bytes.
func (c *LRU[V]) Put(key string, value V, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.evictionList.MoveToFront(elem)
		e := elem.Value.(*entry[V])
		c.currentSize += size - e.size
		e.value = value
		e.size = size
		c.evict()
		return
	}

	elem := c.evictionList.PushFront(&entry[V]{key: key, value: value, size: size})
	c.items[key] = elem
	c.currentSize += size

	c.evict()
}

// evict removes entries until the cache is within limits. A single entry
// larger than maxSizeBytes is kept.
func (c *LRU[V]) evict() {
	for c.evictionList.Len() > 1 {
		overItems := c.maxItems > 0 && c.evictionList.Len() > c.maxItems
		overSize := c.maxSizeBytes > 0 && c.currentSize > c.maxSizeBytes
		if !overItems && !overSize {
			return
		}
		c.removeElement(c.evictionList.Back())
		c.evictions++
	}
}

func (c *LRU[V]) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(c.items, e.key)
	c.currentSize -= e.size
}

// Len returns the number of items in the cache.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictionList.Len()
}

// Size returns the total size of items in the cache.
func (c *LRU[V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Stats holds cache statistics.
type Stats struct {
	Items     int
	Size      int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Stats returns current cache statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Items:     c.evictionList.Len(),
		Size:      c.currentSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}
