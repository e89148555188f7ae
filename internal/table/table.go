// Package table implements the immutable routing table a member advertises to
// the rest of the cluster: the set of items (RPCs or Actions) it serves, and
// the invoker able to execute calls for them.
package table

import (
	"github.com/arya-analytics/relay/internal/invoker"
	"golang.org/x/exp/maps"
)

// Table is an immutable set of routed items served by a single invoker. Every
// mutation returns a new Table and leaves the receiver untouched, so a Table
// can be shared freely between goroutines.
type Table[I comparable] struct {
	invoker invoker.Ref
	items   map[I]struct{}
}

// New returns a table served by inv containing items. inv must not be nil.
func New[I comparable](inv invoker.Ref, items ...I) Table[I] {
	if inv == nil {
		panic("[table] - invoker must not be nil")
	}
	t := Table[I]{invoker: inv, items: make(map[I]struct{}, len(items))}
	for _, item := range items {
		t.items[item] = struct{}{}
	}
	return t
}

// Invoker returns the reference to the process serving the table's items.
func (t Table[I]) Invoker() invoker.Ref { return t.invoker }

// WithAdded returns a copy of the table with items added.
func (t Table[I]) WithAdded(items ...I) Table[I] {
	next := t.copy(len(items))
	for _, item := range items {
		next.items[item] = struct{}{}
	}
	return next
}

// WithRemoved returns a copy of the table with items removed. Items that aren't
// in the table are ignored.
func (t Table[I]) WithRemoved(items ...I) Table[I] {
	next := t.copy(0)
	for _, item := range items {
		delete(next.items, item)
	}
	return next
}

// Contains returns true if the table holds item.
func (t Table[I]) Contains(item I) bool {
	_, ok := t.items[item]
	return ok
}

// Size returns the number of items in the table.
func (t Table[I]) Size() int { return len(t.items) }

// Empty returns true if the table holds no items.
func (t Table[I]) Empty() bool { return len(t.items) == 0 }

// Items returns the table's items in no particular order. The returned slice
// is owned by the caller.
func (t Table[I]) Items() []I { return maps.Keys(t.items) }

// Equal returns true if both tables hold the same set of items. The invoker is
// not considered.
func (t Table[I]) Equal(other Table[I]) bool {
	if len(t.items) != len(other.items) {
		return false
	}
	for item := range t.items {
		if _, ok := other.items[item]; !ok {
			return false
		}
	}
	return true
}

func (t Table[I]) copy(extra int) Table[I] {
	next := Table[I]{invoker: t.invoker, items: make(map[I]struct{}, len(t.items)+extra)}
	for item := range t.items {
		next.items[item] = struct{}{}
	}
	return next
}
