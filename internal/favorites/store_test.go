package favorites

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d8349565/clipboard/internal/clipboard"
)

func textItem(s string) *clipboard.Item {
	return &clipboard.Item{
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Type:      clipboard.TypeText,
		Text:      s,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "favorites.json"))
}

func TestToggleTwiceLeavesStoreEmpty(t *testing.T) {
	s := newTestStore(t)
	item := textItem("snippet")

	added, id1 := s.Toggle(item)
	assert.True(t, added)

	added, id2 := s.Toggle(textItem("snippet"))
	assert.False(t, added, "second toggle of identical content must remove")
	assert.Equal(t, id1, id2, "fingerprint must be stable across captures")
	assert.Empty(t, s.Entries())
}

func TestAddOrPromoteDoesNotDuplicate(t *testing.T) {
	s := newTestStore(t)

	s.AddOrPromote(textItem("a"))
	s.AddOrPromote(textItem("b"))
	first := textItem("a")
	first.CreatedAt = first.CreatedAt.Add(time.Hour) // later capture, same content
	id := s.AddOrPromote(first)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, id, entries[0].ID, "existing entry moves to front")
	assert.Equal(t, "a", entries[0].Item.Text)
	// Promotion keeps the originally favorited item, not the re-added one.
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), entries[0].Item.CreatedAt)
}

func TestRemoveByID(t *testing.T) {
	s := newTestStore(t)
	id := s.AddOrPromote(textItem("a"))

	assert.True(t, s.RemoveByID(id))
	assert.False(t, s.RemoveByID(id))
	assert.Empty(t, s.Entries())
}

func TestMoveClampsIndices(t *testing.T) {
	s := newTestStore(t)
	s.AddOrPromote(textItem("c"))
	s.AddOrPromote(textItem("b"))
	s.AddOrPromote(textItem("a")) // order: a b c

	s.Move(0, 99) // clamp to last
	assert.Equal(t, []string{"b", "c", "a"}, texts(s))

	s.Move(2, -5) // clamp to first
	assert.Equal(t, []string{"a", "b", "c"}, texts(s))

	s.Move(42, 0) // out-of-range source is a no-op
	assert.Equal(t, []string{"a", "b", "c"}, texts(s))
}

func TestSetOrderKeepsUnlistedEntries(t *testing.T) {
	s := newTestStore(t)
	idC := s.AddOrPromote(textItem("c"))
	idB := s.AddOrPromote(textItem("b"))
	s.AddOrPromote(textItem("a"))

	s.SetOrder([]string{idC, idB}) // partial reorder omits "a"

	require.Len(t, s.Entries(), 3, "unlisted entries must not be lost")
	assert.Equal(t, []string{"c", "b", "a"}, texts(s))
}

func TestSetOrderIgnoresUnknownIDs(t *testing.T) {
	s := newTestStore(t)
	idA := s.AddOrPromote(textItem("a"))

	s.SetOrder([]string{"bogus", idA, idA})
	assert.Equal(t, []string{"a"}, texts(s))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	files := &clipboard.Item{
		CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Type:      clipboard.TypeFiles,
		FilePaths: []string{`C:\z\late.txt`, `C:\a\early.txt`},
	}
	rtf := &clipboard.Item{
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Type:      clipboard.TypeRTF,
		Text:      "preview",
		RawBytes:  []byte{0x7b, 0x5c, 0x00, 0xff},
	}
	s.AddOrPromote(files)
	s.AddOrPromote(rtf)
	require.NoError(t, s.Save())

	loaded := NewStore(s.Path())
	require.NoError(t, loaded.Load())

	entries := loaded.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, clipboard.TypeRTF, entries[0].Item.Type)
	assert.Equal(t, []byte{0x7b, 0x5c, 0x00, 0xff}, entries[0].Item.RawBytes)
	assert.Equal(t, clipboard.TypeFiles, entries[1].Item.Type)
	assert.Equal(t, files.FilePaths, entries[1].Item.FilePaths, "ordering persisted verbatim")
	assert.Equal(t, s.IDs(), loaded.IDs())
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "favorites.json"))
	require.NoError(t, s.Load())
	assert.Empty(t, s.Entries())
}

func texts(s *Store) []string {
	entries := s.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Item.Text
	}
	return out
}
