package pdf

import (
	"sync"
	"time"
)

// DefaultDocumentCacheSize bounds how many documents keep their text layer in memory
const DefaultDocumentCacheSize = 8

type cachedDocument struct {
	modTime time.Time
	size    int64
	pages   [][]Span
}

// documentCache is a least recently used cache of text layers keyed by file path
type documentCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	path string
	doc  *cachedDocument
	prev *cacheNode
	next *cacheNode
}

// CacheStats reports text layer cache usage
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
}

func newDocumentCache(capacity int) *documentCache {
	if capacity <= 0 {
		capacity = DefaultDocumentCacheSize
	}
	c := &documentCache{
		capacity: capacity,
		items:    make(map[string]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// get returns the cached document when it still matches the file's mod time and size
func (c *documentCache) get(path string, modTime time.Time, size int64) (*cachedDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[path]
	if !ok || !node.doc.modTime.Equal(modTime) || node.doc.size != size {
		c.misses++
		return nil, false
	}
	c.moveToFront(node)
	c.hits++
	return node.doc, true
}

func (c *documentCache) put(path string, doc *cachedDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[path]; ok {
		node.doc = doc
		c.moveToFront(node)
		return
	}

	node := &cacheNode{path: path, doc: doc}
	c.addToFront(node)
	c.items[path] = node
	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.unlink(lru)
		delete(c.items, lru.path)
	}
}

func (c *documentCache) remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.items[path]; ok {
		c.unlink(node)
		delete(c.items, path)
	}
}

// paths lists cached documents from most to least recently used
func (c *documentCache) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		out = append(out, n.path)
	}
	return out
}

func (c *documentCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.items), Capacity: c.capacity}
}

func (c *documentCache) moveToFront(node *cacheNode) {
	c.unlink(node)
	c.addToFront(node)
}

func (c *documentCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *documentCache) unlink(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
