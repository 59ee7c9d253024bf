package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is an in-memory cache bounded by the total size of its values.
// The least recently used entries are evicted first.
type LRU struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type entry struct {
	key   string
	value []byte
}

// NewLRU creates a cache holding at most capacity bytes. A capacity of zero
// or less disables caching: every Put is refused with ErrItemTooLarge.
func NewLRU(capacity int64) *LRU {
	return &LRU{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns the value stored under key and marks it recently used.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry).value, true
}

// Put stores value under key, evicting older entries to make room.
func (c *LRU) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(value))
	if n > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	for c.size+n > c.capacity && c.eviction.Len() > 0 {
		c.remove(c.eviction.Back())
		c.stats.Evictions++
		c.stats.LastEvict = time.Now()
	}

	c.items[key] = c.eviction.PushFront(&entry{key: key, value: value})
	c.size += n
	return nil
}

// Contains reports whether key is cached without touching recency.
func (c *LRU) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Delete drops key from the cache.
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Size returns the current cache size in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// remove must be called with the lock held.
func (c *LRU) remove(elem *list.Element) {
	e := c.eviction.Remove(elem).(*entry)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
}
