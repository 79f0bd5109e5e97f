// Package cache provides a fixed-capacity FIFO cache.
//
// Unlike an LRU, reads never change an entry's age: the oldest inserted
// entry is always the next one evicted. A FIFO is not safe for concurrent
// use; callers that share one must serialize access.
package cache

import (
	"errors"
	"fmt"
	"iter"

	"github.com/charmbracelet/log"
)

var (
	// ErrInvalidCapacity is the panic value for a capacity below one.
	ErrInvalidCapacity = errors.New("cache: capacity must be at least 1")
	// ErrInternalConsistency is the panic value when the ring and its index
	// disagree.
	ErrInternalConsistency = errors.New("cache: internal consistency failure")
)

type slot[K comparable, V any] struct {
	key   K
	value V
}

// FIFO is a bounded key/value cache backed by a ring of slots and a map from
// key to slot.
type FIFO[K comparable, V any] struct {
	slots     []slot[K, V]
	index     map[K]int
	next      int
	size      int
	hits      int
	misses    int
	evictions int
}

// NewFIFO creates a cache holding at most capacity entries.
func NewFIFO[K comparable, V any](capacity int) *FIFO[K, V] {
	if capacity < 1 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity))
	}
	return &FIFO[K, V]{
		slots: make([]slot[K, V], capacity),
		index: make(map[K]int, capacity),
	}
}

// Add stores value under key. When the cache is full the oldest entry is
// evicted first. Re-adding a key replaces its value but keeps its age.
func (c *FIFO[K, V]) Add(key K, value V) {
	if i, ok := c.index[key]; ok {
		c.slots[i].value = value
		return
	}

	if c.size == len(c.slots) {
		evicted := c.slots[c.next]
		delete(c.index, evicted.key)
		c.evictions++
		log.Debugf("Evicted %v from FIFO cache", evicted.key)
	} else {
		c.size++
	}

	c.slots[c.next] = slot[K, V]{key: key, value: value}
	c.index[key] = c.next
	c.next = (c.next + 1) % len(c.slots)
}

// Get returns the value stored under key.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	i, ok := c.index[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return c.slots[i].value, true
}

// Contains reports whether key is cached without touching the hit counters.
func (c *FIFO[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Len returns the number of cached entries.
func (c *FIFO[K, V]) Len() int {
	return c.size
}

// Cap returns the capacity.
func (c *FIFO[K, V]) Cap() int {
	return len(c.slots)
}

// Resize changes the capacity. Shrinking keeps the newest entries; growing
// keeps everything. Relative order is preserved either way.
func (c *FIFO[K, V]) Resize(capacity int) {
	if capacity < 1 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity))
	}
	if capacity == len(c.slots) {
		return
	}

	keep := min(c.size, capacity)
	slots := make([]slot[K, V], capacity)
	index := make(map[K]int, capacity)
	// Oldest surviving entry sits keep slots behind next.
	start := (c.next - keep + len(c.slots)) % len(c.slots)
	for i := 0; i < keep; i++ {
		s := c.slots[(start+i)%len(c.slots)]
		slots[i] = s
		index[s.key] = i
	}

	if dropped := c.size - keep; dropped > 0 {
		c.evictions += dropped
		log.Debugf("Dropped %d entries while shrinking FIFO cache to %d", dropped, capacity)
	}

	c.slots = slots
	c.index = index
	c.size = keep
	c.next = keep % capacity
	c.verify()
}

// All yields the entries from oldest to newest.
func (c *FIFO[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		start := c.oldest()
		for i := 0; i < c.size; i++ {
			s := c.slots[(start+i)%len(c.slots)]
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// Keys returns the keys from oldest to newest.
func (c *FIFO[K, V]) Keys() []K {
	keys := make([]K, 0, c.size)
	for k := range c.All() {
		keys = append(keys, k)
	}
	return keys
}

// Clear empties the cache, keeping its capacity.
func (c *FIFO[K, V]) Clear() {
	clear(c.slots)
	clear(c.index)
	c.next = 0
	c.size = 0
}

// Stats reports counters in the same shape as the other stats maps.
func (c *FIFO[K, V]) Stats() map[string]int {
	return map[string]int{
		"cacheEntries":   c.size,
		"cacheCapacity":  len(c.slots),
		"cacheHits":      c.hits,
		"cacheMisses":    c.misses,
		"cacheEvictions": c.evictions,
	}
}

func (c *FIFO[K, V]) oldest() int {
	return (c.next - c.size + len(c.slots)) % len(c.slots)
}

func (c *FIFO[K, V]) verify() {
	if len(c.index) != c.size {
		panic(fmt.Errorf("%w: index holds %d keys, ring holds %d", ErrInternalConsistency, len(c.index), c.size))
	}
	start := c.oldest()
	for i := 0; i < c.size; i++ {
		pos := (start + i) % len(c.slots)
		if c.index[c.slots[pos].key] != pos {
			panic(fmt.Errorf("%w: key %v is not indexed at slot %d", ErrInternalConsistency, c.slots[pos].key, pos))
		}
	}
}
