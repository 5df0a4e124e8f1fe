// Package pageindex holds the numbered snapshots that make positional voice
// commands ("open third result", "click link number 2") resolve
// deterministically. Entries are 1-based and contiguous, rebuilt wholesale
// from a settled page and never mutated in place; a snapshot is marked stale
// the moment the page it was read from changes.
package pageindex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutOfRange reports an ordinal outside [1, Size()]. It is a resolution
// error, never an index panic.
var ErrOutOfRange = errors.New("ordinal out of range")

// ResultEntry is one search result as rendered, top to bottom.
type ResultEntry struct {
	Index int
	Title string
	URL   string
}

// LinkEntry is one visible page link in document order. Selector is the CSS
// path recorded at harvest time, used as a locator fallback when text lookup
// fails on the live page.
type LinkEntry struct {
	Index    int
	Text     string
	Href     string
	Selector string
}

// ResultIndex is the numbered snapshot of the current search results.
// The zero value is an empty, non-stale index.
type ResultIndex struct {
	entries []ResultEntry
	stale   bool
}

// Rebuild atomically replaces the snapshot. Entry order must match the
// rendered visual order; indexes are reassigned 1..n regardless of input.
func (ri *ResultIndex) Rebuild(entries []ResultEntry) {
	snap := make([]ResultEntry, len(entries))
	copy(snap, entries)
	for i := range snap {
		snap[i].Index = i + 1
	}
	ri.entries = snap
	ri.stale = false
}

// Get returns the entry at a 1-based ordinal.
func (ri *ResultIndex) Get(ordinal int) (ResultEntry, error) {
	if ordinal < 1 || ordinal > len(ri.entries) {
		return ResultEntry{}, fmt.Errorf("result %d: %w (have %d)", ordinal, ErrOutOfRange, len(ri.entries))
	}
	return ri.entries[ordinal-1], nil
}

// Size returns the number of entries in the snapshot.
func (ri *ResultIndex) Size() int { return len(ri.entries) }

// Entries returns a copy of the snapshot for introspection callers.
func (ri *ResultIndex) Entries() []ResultEntry {
	out := make([]ResultEntry, len(ri.entries))
	copy(out, ri.entries)
	return out
}

// MarkStale flags the snapshot as no longer reflecting the current page.
func (ri *ResultIndex) MarkStale() { ri.stale = true }

// IsStale reports whether the snapshot must be rebuilt before use.
func (ri *ResultIndex) IsStale() bool { return ri.stale }

// Clear drops the snapshot entirely.
func (ri *ResultIndex) Clear() {
	ri.entries = nil
	ri.stale = false
}

// LinkIndex is the numbered snapshot of the current page's visible links.
// The zero value is an empty, stale index: links are harvested lazily, so an
// index that has never been built must trigger a rebuild on first use.
type LinkIndex struct {
	entries []LinkEntry
	built   bool
	stale   bool
}

// Rebuild atomically replaces the snapshot with links in document order.
func (li *LinkIndex) Rebuild(entries []LinkEntry) {
	snap := make([]LinkEntry, len(entries))
	copy(snap, entries)
	for i := range snap {
		snap[i].Index = i + 1
	}
	li.entries = snap
	li.built = true
	li.stale = false
}

// Get returns the entry at a 1-based ordinal.
func (li *LinkIndex) Get(ordinal int) (LinkEntry, error) {
	if ordinal < 1 || ordinal > len(li.entries) {
		return LinkEntry{}, fmt.Errorf("link %d: %w (have %d)", ordinal, ErrOutOfRange, len(li.entries))
	}
	return li.entries[ordinal-1], nil
}

// Size returns the number of entries in the snapshot.
func (li *LinkIndex) Size() int { return len(li.entries) }

// Entries returns a copy of the snapshot for introspection callers.
func (li *LinkIndex) Entries() []LinkEntry {
	out := make([]LinkEntry, len(li.entries))
	copy(out, li.entries)
	return out
}

// FindByText returns links matching text in document order. With exact=false
// the match is a case-insensitive substring; with exact=true the link text
// must equal the query ignoring case. Callers wanting deterministic behavior
// take the first match.
func (li *LinkIndex) FindByText(text string, exact bool) []LinkEntry {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	var out []LinkEntry
	for _, e := range li.entries {
		have := strings.ToLower(e.Text)
		if exact {
			if have == needle {
				out = append(out, e)
			}
		} else if strings.Contains(have, needle) {
			out = append(out, e)
		}
	}
	return out
}

// MarkStale flags the snapshot as no longer reflecting the current page.
func (li *LinkIndex) MarkStale() { li.stale = true }

// IsStale reports whether the snapshot must be rebuilt before use. An index
// that was never built is stale by definition.
func (li *LinkIndex) IsStale() bool { return !li.built || li.stale }

// Clear drops the snapshot and returns the index to its never-built state.
func (li *LinkIndex) Clear() {
	li.entries = nil
	li.built = false
	li.stale = false
}
