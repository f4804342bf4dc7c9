// Package addressbook is the paged view over the destination catalog.
package addressbook

import (
	"sync"

	"github.com/roach88/dhd/internal/gate"
)

// PageSize is the number of destinations visible at once.
const PageSize = 5

// Book is a scrollable window of PageSize destinations with a selection.
type Book struct {
	destinations []gate.Destination

	mu       sync.Mutex
	offset   int
	selected int
}

// New creates a book over destinations, scrolled to the top with nothing
// selected.
func New(destinations []gate.Destination) *Book {
	ds := make([]gate.Destination, len(destinations))
	copy(ds, destinations)
	return &Book{destinations: ds, selected: -1}
}

// Len returns the number of destinations.
func (b *Book) Len() int { return len(b.destinations) }

// TopItem is the index of the first visible destination.
func (b *Book) TopItem() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// BottomItem is one past the index of the last visible destination.
func (b *Book) BottomItem() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset + PageSize
}

// CanScrollDown reports whether destinations exist below the window.
func (b *Book) CanScrollDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canScrollDown()
}

// CanScrollUp reports whether destinations exist above the window.
func (b *Book) CanScrollUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset > 0
}

func (b *Book) canScrollDown() bool {
	return b.offset+PageSize < len(b.destinations)
}

// ScrollDown moves the window one entry down. Returns false at the end.
func (b *Book) ScrollDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canScrollDown() {
		return false
	}
	b.offset++
	return true
}

// ScrollUp moves the window one entry up. Returns false at the top.
func (b *Book) ScrollUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offset == 0 {
		return false
	}
	b.offset--
	return true
}

// Visible returns the destinations inside the window.
func (b *Book) Visible() []gate.Destination {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := min(b.offset+PageSize, len(b.destinations))
	out := make([]gate.Destination, end-b.offset)
	copy(out, b.destinations[b.offset:end])
	return out
}

// Select marks the destination at absolute index i.
func (b *Book) Select(i int) (gate.Destination, bool) {
	if i < 0 || i >= len(b.destinations) {
		return gate.Destination{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = i
	return b.destinations[i], true
}

// SelectVisible marks the destination at row of the current window.
func (b *Book) SelectVisible(row int) (gate.Destination, bool) {
	if row < 0 || row >= PageSize {
		return gate.Destination{}, false
	}
	return b.Select(b.TopItem() + row)
}

// Selected returns the current selection.
func (b *Book) Selected() (gate.Destination, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected < 0 {
		return gate.Destination{}, false
	}
	return b.destinations[b.selected], true
}

// ClearSelection drops the selection.
func (b *Book) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = -1
}
