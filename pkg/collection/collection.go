// Package collection holds titles returned by wiki queries.
//
// A Collection keeps items in insertion order and unique by title identity:
// adding a title that is already present replaces the old item and moves it
// to the end. An admission policy can keep whole namespaces out, which is
// how callers bound memory when a query would return far more than they
// need.
//
// Collections are not safe for concurrent use.
package collection

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
)

// ErrInternalConsistency is wrapped by the panic raised when the position
// index and the item list disagree.
var ErrInternalConsistency = errors.New("collection: internal consistency failure")

type entry[T title.SimpleTitle] struct {
	key  title.Key
	item T
}

// Collection is an ordered set of titles from one site.
type Collection[T title.SimpleTitle] struct {
	site       *site.Site
	entries    []entry[T]
	index      map[title.Key]int
	limitation LimitationType
	namespaces map[int]struct{}
}

// New creates an empty collection for s.
func New[T title.SimpleTitle](s *site.Site) *Collection[T] {
	if s == nil {
		panic(fmt.Errorf("%w: collection needs a site", title.ErrInvalidInput))
	}
	return &Collection[T]{
		site:  s,
		index: make(map[title.Key]int),
	}
}

// From creates a collection for s holding items.
func From[T title.SimpleTitle](s *site.Site, items ...T) *Collection[T] {
	c := New[T](s)
	c.AddRange(items...)
	return c
}

// Site returns the site the collection belongs to.
func (c *Collection[T]) Site() *site.Site {
	return c.site
}

// keyOf checks that t can live in this collection and returns its key.
func (c *Collection[T]) keyOf(t title.SimpleTitle) title.Key {
	if title.IsNil(t) {
		panic(fmt.Errorf("%w: nil title", title.ErrInvalidInput))
	}
	ns := t.Namespace()
	if ns == nil {
		panic(fmt.Errorf("%w: title %q has no namespace", title.ErrInvalidInput, t.PageName()))
	}
	if ns.Site() != c.site {
		panic(fmt.Errorf("%w: title %q belongs to site %v, not %q", title.ErrInvalidInput, t.PageName(), ns.Site(), c.site.Name))
	}
	if title.IsForeign(t) {
		panic(fmt.Errorf("%w: title %q is on another wiki", title.ErrInvalidInput, t.PageName()))
	}
	return title.KeyOf(t)
}

// Add inserts item at the end. An item with the same title is removed
// first. Add returns false when the admission policy rejects the item.
func (c *Collection[T]) Add(item T) bool {
	key := c.keyOf(item)
	if !c.IsAllowed(key.Namespace().ID) {
		log.Debugf("Collection rejected %q: namespace %d not admitted", key.PageName(), key.Namespace().ID)
		return false
	}
	if i, ok := c.index[key]; ok {
		c.deleteAt(i)
	}
	c.insert(key, item)
	return true
}

// AddRange adds items in order and returns how many were admitted.
func (c *Collection[T]) AddRange(items ...T) int {
	added := 0
	for _, item := range items {
		if c.Add(item) {
			added++
		}
	}
	return added
}

// Merge adds every item of other, subject to this collection's policy.
func (c *Collection[T]) Merge(other *Collection[T]) int {
	if other == nil || other == c {
		return 0
	}
	return c.AddRange(other.Items()...)
}

// Contains reports whether a title with t's identity is present.
func (c *Collection[T]) Contains(t title.SimpleTitle) bool {
	_, ok := c.index[c.keyOf(t)]
	return ok
}

// IndexOf returns the position of t, or -1.
func (c *Collection[T]) IndexOf(t title.SimpleTitle) int {
	key := c.keyOf(t)
	i, ok := c.index[key]
	if !ok {
		return -1
	}
	if i < 0 || i >= len(c.entries) || c.entries[i].key != key {
		panic(fmt.Errorf("%w: %q indexed at %d of %d entries", ErrInternalConsistency, key.PageName(), i, len(c.entries)))
	}
	return i
}

// Get returns the stored item with t's identity.
func (c *Collection[T]) Get(t title.SimpleTitle) (T, bool) {
	if i := c.IndexOf(t); i >= 0 {
		return c.entries[i].item, true
	}
	var zero T
	return zero, false
}

// At returns the item at position i.
func (c *Collection[T]) At(i int) T {
	return c.entries[i].item
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	return len(c.entries)
}

// All yields positions and items in order. The collection must not be
// modified during iteration.
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range c.entries {
			if !yield(i, e.item) {
				return
			}
		}
	}
}

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T {
	items := make([]T, len(c.entries))
	for i, e := range c.entries {
		items[i] = e.item
	}
	return items
}

// Titles returns the items as plain Titles.
func (c *Collection[T]) Titles() []title.Title {
	titles := make([]title.Title, len(c.entries))
	for i, e := range c.entries {
		titles[i] = title.FromSimple(e.item)
	}
	return titles
}

// Remove deletes the item with t's identity.
func (c *Collection[T]) Remove(t title.SimpleTitle) bool {
	i := c.IndexOf(t)
	if i < 0 {
		return false
	}
	c.deleteAt(i)
	return true
}

// RemoveAt deletes the item at position i.
func (c *Collection[T]) RemoveAt(i int) {
	if i < 0 || i >= len(c.entries) {
		panic(fmt.Errorf("%w: index %d out of range [0, %d)", title.ErrInvalidInput, i, len(c.entries)))
	}
	c.deleteAt(i)
}

// RemoveWhere deletes every item matching pred and returns the count.
// pred sees every item before anything is removed.
func (c *Collection[T]) RemoveWhere(pred func(T) bool) int {
	drop := make([]bool, len(c.entries))
	removed := 0
	for i := len(c.entries) - 1; i >= 0; i-- {
		if pred(c.entries[i].item) {
			drop[i] = true
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	kept := make([]entry[T], 0, len(c.entries)-removed)
	for i, e := range c.entries {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	c.reindex()
	return removed
}

// RemoveNamespaces deletes items in any of the given namespaces.
func (c *Collection[T]) RemoveNamespaces(ids ...int) int {
	set := idSet(ids)
	return c.RemoveWhere(func(item T) bool {
		_, ok := set[item.Namespace().ID]
		return ok
	})
}

// FilterToNamespaces deletes items outside the given namespaces.
func (c *Collection[T]) FilterToNamespaces(ids ...int) int {
	set := idSet(ids)
	return c.RemoveWhere(func(item T) bool {
		_, ok := set[item.Namespace().ID]
		return !ok
	})
}

// Sort orders the items with title.Ordering.
func (c *Collection[T]) Sort() {
	c.SortFunc(title.Compare[T])
}

// SortNatural orders the items with title.NaturalOrdering.
func (c *Collection[T]) SortNatural() {
	c.SortFunc(title.CompareNatural[T])
}

// SortFunc orders the items with cmp. The sort is stable.
func (c *Collection[T]) SortFunc(cmp func(a, b T) int) {
	slices.SortStableFunc(c.entries, func(a, b entry[T]) int {
		return cmp(a.item, b.item)
	})
	c.reindex()
}

// Clear removes every item. The admission policy is kept.
func (c *Collection[T]) Clear() {
	c.entries = nil
	clear(c.index)
}

// Verify checks that the index and the item list agree.
func (c *Collection[T]) Verify() error {
	if len(c.index) != len(c.entries) {
		return fmt.Errorf("%w: %d indexed keys for %d entries", ErrInternalConsistency, len(c.index), len(c.entries))
	}
	for i, e := range c.entries {
		if e.key != title.KeyOf(e.item) {
			return fmt.Errorf("%w: entry %d carries a stale key %q", ErrInternalConsistency, i, e.key.PageName())
		}
		if j, ok := c.index[e.key]; !ok || j != i {
			return fmt.Errorf("%w: entry %d (%q) indexed at %d", ErrInternalConsistency, i, e.key.PageName(), j)
		}
	}
	return nil
}

func (c *Collection[T]) insert(key title.Key, item T) {
	c.entries = append(c.entries, entry[T]{key: key, item: item})
	c.index[key] = len(c.entries) - 1
}

func (c *Collection[T]) deleteAt(i int) {
	delete(c.index, c.entries[i].key)
	c.entries = slices.Delete(c.entries, i, i+1)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].key] = j
	}
}

func (c *Collection[T]) reindex() {
	clear(c.index)
	for i, e := range c.entries {
		c.index[e.key] = i
	}
}
