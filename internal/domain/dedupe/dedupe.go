// Package dedupe remembers which submission an Idempotency-Key produced so a
// retried upload returns the original submission instead of consuming quota.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Cache maps idempotency keys to submission ids.
type Cache interface {
	// Lookup returns the submission recorded for key, if any.
	Lookup(ctx context.Context, key string) (string, bool)

	// Record remembers that key produced submissionID. Recording an existing
	// key keeps the first submission.
	Record(ctx context.Context, key, submissionID string)

	Size() int64
}

// node is one entry of the insertion-ordered list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// inMemoryCache keeps keys in a map plus a FIFO list for eviction.
// For bounded mode (maxSize > 0): the oldest key is evicted first and nodes are pooled.
// For unbounded mode (maxSize <= 0): keys are never evicted.
type inMemoryCache struct {
	mu       sync.Mutex
	ids      map[string]string
	head     *node // oldest
	tail     *node // newest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryCache creates an in-memory cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: 10_000,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ids = make(map[string]string)
	c.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return c
}

func (c *inMemoryCache) Lookup(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[key]
	return id, ok
}

func (c *inMemoryCache) Record(_ context.Context, key, submissionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ids[key]; exists {
		return
	}
	if c.maxSize > 0 {
		if len(c.ids) >= c.maxSize {
			c.evictOldest()
		}
		n := c.nodePool.Get().(*node)
		n.key = key
		if c.tail == nil {
			c.head = n
		} else {
			c.tail.next = n
		}
		c.tail = n
	}
	c.ids[key] = submissionID
	c.size.Add(1)
}

// evictOldest drops the head of the list. Must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	n := c.head
	if n == nil {
		return
	}
	c.head = n.next
	if c.head == nil {
		c.tail = nil
	}
	delete(c.ids, n.key)
	n.reset()
	c.nodePool.Put(n)
	c.size.Add(-1)
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
