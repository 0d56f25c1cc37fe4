// Package favorites keeps the user-curated, reorderable collection of
// clipboard items, keyed by content fingerprint and persisted as a single
// JSON file rewritten in full on every mutation.
package favorites

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/d8349565/clipboard/internal/clipboard"
)

// Entry pairs a content fingerprint with the favorited item. The item's
// CreatedAt is the time it was first favorited and is not refreshed on
// promotion.
type Entry struct {
	ID   string
	Item *clipboard.Item
}

// Store owns its entry list exclusively; ordering is user-controlled and
// persisted verbatim. There is no eviction.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Entries returns a snapshot copy in display order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

func (s *Store) Contains(item *clipboard.Item) bool {
	id := clipboard.Fingerprint(item)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// AddOrPromote inserts item at the front, or moves the existing entry with
// the same fingerprint to the front instead of duplicating it.
func (s *Store) AddOrPromote(item *clipboard.Item) string {
	id := clipboard.Fingerprint(item)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		e := s.entries[i]
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		s.entries = append([]Entry{e}, s.entries...)
		return id
	}
	s.entries = append([]Entry{{ID: id, Item: item}}, s.entries...)
	return id
}

// Toggle removes the item if favorited, else adds it at the front. It
// returns whether the item is now favorited, plus its fingerprint.
func (s *Store) Toggle(item *clipboard.Item) (bool, string) {
	id := clipboard.Fingerprint(item)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return false, id
	}
	s.entries = append([]Entry{{ID: id, Item: item}}, s.entries...)
	return true, id
}

func (s *Store) RemoveByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return true
	}
	return false
}

// Move reorders one entry, clamping to-index to the valid range.
func (s *Store) Move(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from < 0 || from >= len(s.entries) {
		return
	}
	if to < 0 {
		to = 0
	}
	if to >= len(s.entries) {
		to = len(s.entries) - 1
	}
	if from == to {
		return
	}
	e := s.entries[from]
	s.entries = append(s.entries[:from], s.entries[from+1:]...)
	rest := append([]Entry{}, s.entries[to:]...)
	s.entries = append(append(s.entries[:to], e), rest...)
}

// SetOrder reorders entries to match ids. Entries not named by ids are
// appended at the end in their previous relative order, so a partial reorder
// request never drops data.
func (s *Store) SetOrder(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]Entry, len(s.entries))
	for _, e := range s.entries {
		byID[e.ID] = e
	}
	seen := make(map[string]bool, len(ids))
	ordered := make([]Entry, 0, len(s.entries))
	for _, id := range ids {
		if e, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, e)
			seen[id] = true
		}
	}
	for _, e := range s.entries {
		if !seen[e.ID] {
			ordered = append(ordered, e)
		}
	}
	s.entries = ordered
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

type favoritesFile struct {
	Favorites []encodedEntry `json:"favorites"`
}

type encodedEntry struct {
	ID   string      `json:"id"`
	Item encodedItem `json:"item"`
}

// encodedItem mirrors clipboard.Item; []byte fields serialize as base64 under
// encoding/json.
type encodedItem struct {
	CreatedAt  time.Time `json:"created_at"`
	ItemType   string    `json:"item_type"`
	Text       *string   `json:"text"`
	FilePaths  []string  `json:"file_paths,omitempty"`
	RawBytes   []byte    `json:"raw_b64,omitempty"`
	ImageBytes []byte    `json:"image_b64,omitempty"`
}

func encodeItem(it *clipboard.Item) encodedItem {
	enc := encodedItem{
		CreatedAt:  it.CreatedAt,
		ItemType:   string(it.Type),
		FilePaths:  it.FilePaths,
		RawBytes:   it.RawBytes,
		ImageBytes: it.ImageBytes,
	}
	if it.Text != "" || it.Type == clipboard.TypeText {
		text := it.Text
		enc.Text = &text
	}
	return enc
}

func decodeItem(enc encodedItem) *clipboard.Item {
	it := &clipboard.Item{
		CreatedAt:  enc.CreatedAt,
		Type:       clipboard.CoerceType(enc.ItemType),
		FilePaths:  enc.FilePaths,
		RawBytes:   enc.RawBytes,
		ImageBytes: enc.ImageBytes,
	}
	if enc.Text != nil {
		it.Text = *enc.Text
	}
	return it
}

// Load replaces the entry list with the file's contents. A missing or
// unreadable file yields an empty store; individual malformed entries are
// dropped rather than failing the load.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.entries = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read favorites file: %w", err)
	}

	var doc favoritesFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse favorites file: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Favorites))
	for _, raw := range doc.Favorites {
		if raw.ID == "" {
			continue
		}
		entries = append(entries, Entry{ID: raw.ID, Item: decodeItem(raw.Item)})
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Save rewrites the whole file. The collection is small and user-bounded, so
// full rewrite wins over incremental update.
func (s *Store) Save() error {
	s.mu.Lock()
	doc := favoritesFile{Favorites: make([]encodedEntry, len(s.entries))}
	for i, e := range s.entries {
		doc.Favorites[i] = encodedEntry{ID: e.ID, Item: encodeItem(e.Item)}
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create favorites directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write favorites file: %w", err)
	}
	return nil
}
