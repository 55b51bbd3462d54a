// Package memo provides a bounded in-memory memo of resolved values keyed by
// string, used to keep session handles between requests.
package memo

import (
	"context"
	"sync"
	"sync/atomic"
)

// node is one entry of the insertion-ordered list.
type node[V any] struct {
	key   string
	value V
	next  *node[V]
}

func (n *node[V]) reset() {
	var zero V
	n.key = ""
	n.value = zero
	n.next = nil
}

// Memo maps keys to values.
// For bounded mode (maxSize > 0): the oldest entry is evicted first.
// For unbounded mode (maxSize <= 0): entries are kept until forgotten.
type Memo[V any] struct {
	mu       sync.RWMutex
	entries  map[string]*node[V]
	head     *node[V] // most recently added
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// New creates a memo with configuration options.
func New[V any](opts ...Option) *Memo[V] {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memo[V]{
		entries: make(map[string]*node[V]),
		maxSize: cfg.maxSize,
	}
	m.nodePool = sync.Pool{
		New: func() interface{} {
			return &node[V]{}
		},
	}
	return m
}

// Get returns the value stored under key.
func (m *Memo[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n, ok := m.entries[key]; ok {
		return n.value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key. An existing entry keeps its position and has
// its value replaced. It reports whether an older entry was evicted.
func (m *Memo[V]) Put(_ context.Context, key string, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.entries[key]; ok {
		n.value = value
		return false
	}

	evicted := false
	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		evicted = m.evictOldest()
	}

	n := m.nodePool.Get().(*node[V])
	n.key = key
	n.value = value
	n.next = m.head
	m.head = n
	m.entries[key] = n
	m.size.Add(1)
	return evicted
}

// Forget removes key, so the next lookup resolves it again.
func (m *Memo[V]) Forget(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	m.unlink(n)
	n.reset()
	m.nodePool.Put(n)
	m.size.Add(-1)
}

// Reset drops every entry.
func (m *Memo[V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for n := m.head; n != nil; {
		next := n.next
		n.reset()
		m.nodePool.Put(n)
		n = next
	}
	m.head = nil
	m.entries = make(map[string]*node[V])
	m.size.Store(0)
}

// Len returns the current number of entries.
func (m *Memo[V]) Len() int64 {
	return m.size.Load()
}

// unlink removes n from the list. Must be called with m.mu held.
func (m *Memo[V]) unlink(n *node[V]) {
	if m.head == n {
		m.head = n.next
		return
	}
	for cur := m.head; cur != nil; cur = cur.next {
		if cur.next == n {
			cur.next = n.next
			return
		}
	}
}

// evictOldest removes the tail of the list. Must be called with m.mu held.
func (m *Memo[V]) evictOldest() bool {
	if m.head == nil {
		return false
	}

	var prev *node[V]
	tail := m.head
	for tail.next != nil {
		prev = tail
		tail = tail.next
	}
	if prev == nil {
		m.head = nil
	} else {
		prev.next = nil
	}

	delete(m.entries, tail.key)
	tail.reset()
	m.nodePool.Put(tail)
	m.size.Add(-1)
	return true
}
