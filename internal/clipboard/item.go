package clipboard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"
)

// Type tags a captured snapshot. The set is closed: decoding an unrecognized
// tag coerces to TypeUnknown rather than inventing a new variant.
type Type string

const (
	TypeText    Type = "text"
	TypeFiles   Type = "files"
	TypeImage   Type = "image"
	TypeHTML    Type = "html"
	TypeRTF     Type = "rtf"
	TypeUnknown Type = "unknown"
)

// CoerceType maps a stored type tag back to a known Type.
func CoerceType(v string) Type {
	switch Type(v) {
	case TypeText, TypeFiles, TypeImage, TypeHTML, TypeRTF, TypeUnknown:
		return Type(v)
	}
	return TypeUnknown
}

// Item is one captured clipboard snapshot. Exactly one representation is
// authoritative per Type: Text for text, FilePaths for files, RawBytes for
// image/html/rtf. ImageBytes is an optional side-channel bitmap attached to a
// non-image item when the producer advertised both. Items are never mutated
// after construction.
type Item struct {
	CreatedAt  time.Time
	Type       Type
	Text       string
	FilePaths  []string
	RawBytes   []byte
	ImageBytes []byte
}

// NowUTC is the capture-time clock for CreatedAt.
func NowUTC() time.Time { return time.Now().UTC() }

// DedupeKey derives the value compared for adjacent suppression in the
// history store. It covers the authoritative payload plus any attached image
// bytes and is recomputed on demand, never stored.
func (it *Item) DedupeKey() string {
	h := sha256.New()
	io.WriteString(h, string(it.Type))
	h.Write([]byte{0})
	switch it.Type {
	case TypeText:
		io.WriteString(h, it.Text)
		h.Write([]byte{0})
		h.Write(it.ImageBytes)
	case TypeFiles:
		hashPaths(h, it.FilePaths)
	case TypeImage:
		h.Write(it.RawBytes)
	case TypeHTML, TypeRTF:
		if it.RawBytes != nil {
			h.Write(it.RawBytes)
		} else {
			io.WriteString(h, it.Text)
		}
		h.Write([]byte{0})
		h.Write(it.ImageBytes)
	default:
		io.WriteString(h, it.Text)
		h.Write([]byte{0})
		hashPaths(h, it.FilePaths)
		h.Write([]byte{0})
		h.Write(it.RawBytes)
		h.Write([]byte{0})
		h.Write(it.ImageBytes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies an item by semantic content, independent of capture
// time. It keys the favorites store: two captures of the same content always
// collapse to one favorite.
func Fingerprint(it *Item) string {
	h := sha256.New()
	io.WriteString(h, string(it.Type))
	h.Write([]byte{0})
	switch it.Type {
	case TypeText:
		io.WriteString(h, it.Text)
	case TypeFiles:
		hashPaths(h, it.FilePaths)
	case TypeImage, TypeHTML, TypeRTF:
		if it.RawBytes != nil {
			h.Write(it.RawBytes)
		} else {
			io.WriteString(h, it.Text)
		}
	default:
		io.WriteString(h, it.Text)
		h.Write([]byte{0})
		hashPaths(h, it.FilePaths)
		h.Write([]byte{0})
		h.Write(it.RawBytes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashPaths(h hash.Hash, paths []string) {
	for _, p := range paths {
		io.WriteString(h, p)
		h.Write([]byte{'\n'})
	}
}

// Preview returns a bounded single-line display string for list rows.
func (it *Item) Preview(maxLen int) string {
	switch it.Type {
	case TypeText:
		return truncate(normalizeNewlines(it.Text), maxLen)
	case TypeFiles:
		if len(it.FilePaths) == 0 {
			return "(empty file list)"
		}
		if len(it.FilePaths) == 1 {
			return it.FilePaths[0]
		}
		return fmt.Sprintf("%s +%d", it.FilePaths[0], len(it.FilePaths)-1)
	case TypeImage:
		return fmt.Sprintf("(image %d bytes)", len(it.RawBytes))
	case TypeHTML, TypeRTF:
		if s := normalizeNewlines(it.Text); s != "" {
			return truncate(s, maxLen)
		}
	}
	return fmt.Sprintf("(%s)", it.Type)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
