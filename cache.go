package etiquette

import "container/list"

// ObjectCache is a bounded identity map from (type, id) to a live object.
// It is the sole source of "same object" semantics: every Get in the
// engines consults this before constructing a new instance from a row.
// Sizes are per entity type, configured via Config.CacheSize.
type ObjectCache struct {
	lru map[string]*lruCache
}

// NewObjectCache builds one bounded map per known entity type.
func NewObjectCache(sizes map[string]int) *ObjectCache {
	c := &ObjectCache{lru: make(map[string]*lruCache)}
	for _, kind := range []string{"album", "bookmark", "photo", "tag", "user", "tagexport"} {
		size := sizes[kind]
		if size <= 0 {
			size = 1000
		}
		c.lru[kind] = newLRUCache(size)
	}
	return c
}

// Get returns the cached object for (kind, id) and true, or false on miss.
func (c *ObjectCache) Get(kind string, id int64) (any, bool) {
	return c.lru[kind].get(id)
}

// Put inserts or refreshes the cached object for (kind, id).
func (c *ObjectCache) Put(kind string, id int64, value any) {
	c.lru[kind].put(id, value)
}

// Evict removes a single entry, used when an object is deleted.
func (c *ObjectCache) Evict(kind string, id int64) {
	c.lru[kind].evict(id)
}

// ClearAll empties every bounded map. Called after a commit that edited
// rows, since cached objects may now be stale relative to disk.
func (c *ObjectCache) ClearAll() {
	for _, l := range c.lru {
		l.clear()
	}
}

// Clear empties a single type's map, e.g. "tagexport" after a tag/group
// write without needing to also evict unrelated photo/album entries.
func (c *ObjectCache) Clear(kind string) {
	if l, ok := c.lru[kind]; ok {
		l.clear()
	}
}

// lruCache is a small hand-rolled bounded map + doubly linked list, in
// the teacher's preference for self-contained helpers over a dependency;
// no LRU library appears anywhere in the retrieved pack's go.mod files.
type lruCache struct {
	capacity int
	items    map[int64]*list.Element
	order    *list.List
}

type lruEntry struct {
	id    int64
	value any
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		items:    make(map[int64]*list.Element),
		order:    list.New(),
	}
}

func (c *lruCache) get(id int64) (any, bool) {
	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(id int64, value any) {
	if el, ok := c.items[id]; ok {
		el.Value.(*lruEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{id: id, value: value})
	c.items[id] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).id)
	}
}

func (c *lruCache) evict(id int64) {
	if el, ok := c.items[id]; ok {
		c.order.Remove(el)
		delete(c.items, id)
	}
}

func (c *lruCache) clear() {
	c.items = make(map[int64]*list.Element)
	c.order.Init()
}
