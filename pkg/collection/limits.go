package collection

import (
	"maps"
	"slices"
)

// LimitationType selects how the namespace set of a collection is applied
// to new items.
type LimitationType int

const (
	// LimitationNone admits every namespace.
	LimitationNone LimitationType = iota
	// LimitationDisallow rejects the listed namespaces.
	LimitationDisallow
	// LimitationOnlyAllow admits only the listed namespaces.
	LimitationOnlyAllow
)

func (l LimitationType) String() string {
	switch l {
	case LimitationNone:
		return "none"
	case LimitationDisallow:
		return "disallow"
	case LimitationOnlyAllow:
		return "only-allow"
	}
	return "unknown"
}

// ParseLimitationType reads the names produced by String.
func ParseLimitationType(s string) (LimitationType, bool) {
	switch s {
	case "none", "":
		return LimitationNone, true
	case "disallow":
		return LimitationDisallow, true
	case "only-allow", "only":
		return LimitationOnlyAllow, true
	}
	return LimitationNone, false
}

// SetLimitations replaces the admission policy. It only affects later
// inserts; call FilterByLimitationRules to apply it to existing items.
func (c *Collection[T]) SetLimitations(limitation LimitationType, ids ...int) {
	c.limitation = limitation
	if limitation == LimitationNone {
		c.namespaces = nil
		return
	}
	c.namespaces = idSet(ids)
}

// Limitations returns the policy and its namespace IDs in ascending order.
func (c *Collection[T]) Limitations() (LimitationType, []int) {
	return c.limitation, slices.Sorted(maps.Keys(c.namespaces))
}

// IsAllowed reports whether the policy admits namespace id.
func (c *Collection[T]) IsAllowed(id int) bool {
	_, listed := c.namespaces[id]
	switch c.limitation {
	case LimitationDisallow:
		return !listed
	case LimitationOnlyAllow:
		return listed
	}
	return true
}

// FilterByLimitationRules removes the items the current policy would
// reject and returns how many were removed.
func (c *Collection[T]) FilterByLimitationRules() int {
	if c.limitation == LimitationNone {
		return 0
	}
	return c.RemoveWhere(func(item T) bool {
		return !c.IsAllowed(item.Namespace().ID)
	})
}

func idSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
