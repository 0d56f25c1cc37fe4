// Package history holds the in-memory, most-recent-first read model consumed
// by the UI.
package history

import (
	"fmt"
	"sync"

	"github.com/d8349565/clipboard/internal/clipboard"
)

// Store is a bounded, order-preserving sequence of captured items. Add
// suppresses adjacent duplicates only: re-copying content that has since been
// pushed down the list is accepted as a new entry.
type Store struct {
	mu       sync.RWMutex
	maxItems int
	items    []*clipboard.Item
}

func New(maxItems int) (*Store, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("history: max items must be > 0, got %d", maxItems)
	}
	return &Store{maxItems: maxItems}, nil
}

func (s *Store) MaxItems() int { return s.maxItems }

// Add prepends item and evicts the oldest entry beyond capacity. It returns
// false without modifying the store when item matches the current front
// entry's dedupe key.
func (s *Store) Add(item *clipboard.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 && s.items[0].DedupeKey() == item.DedupeKey() {
		return false
	}
	s.items = append([]*clipboard.Item{item}, s.items...)
	if len(s.items) > s.maxItems {
		s.items = s.items[:s.maxItems]
	}
	return true
}

// Items returns a snapshot copy so iteration is never invalidated by a
// concurrent capture.
func (s *Store) Items() []*clipboard.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*clipboard.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
