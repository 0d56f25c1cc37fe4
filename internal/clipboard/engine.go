package clipboard

import (
	"fmt"
	"log/slog"

	"github.com/d8349565/clipboard/internal/extract"
)

// DefaultMaxImageBytes is the hard ceiling on captured image payloads.
// Oversized images are skipped with a warning; capture continues with the
// remaining formats.
const DefaultMaxImageBytes = 50 * 1024 * 1024

// Engine turns "something changed on the clipboard" into at most one
// normalized Item, and performs the inverse re-injection.
type Engine struct {
	codec         Codec
	maxImageBytes int
}

func NewEngine(codec Codec, maxImageBytes int) *Engine {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &Engine{codec: codec, maxImageBytes: maxImageBytes}
}

// Capture probes formats in priority order and returns the snapshot, or nil
// when the clipboard holds nothing we model. An empty or unsupported
// clipboard state is a normal outcome, not an error.
func (e *Engine) Capture() (*Item, error) {
	var item *Item
	err := e.codec.WithClipboard(func(s Session) error {
		if s.Has(FormatFileDrop) {
			paths, err := s.ReadFilePaths()
			if err != nil {
				return err
			}
			item = &Item{CreatedAt: NowUTC(), Type: TypeFiles, FilePaths: paths}
			return nil
		}

		image := e.readImage(s)

		if s.Has(FormatHTML) {
			raw, err := s.Read(FormatHTML)
			if err != nil {
				return err
			}
			item = &Item{
				CreatedAt:  NowUTC(),
				Type:       TypeHTML,
				Text:       extract.HTMLPreview(raw, extract.DefaultPreviewLen),
				RawBytes:   raw,
				ImageBytes: image,
			}
			return nil
		}

		if s.Has(FormatRTF) {
			raw, err := s.Read(FormatRTF)
			if err != nil {
				return err
			}
			item = &Item{
				CreatedAt:  NowUTC(),
				Type:       TypeRTF,
				Text:       extract.RTFPreview(raw, extract.DefaultPreviewLen),
				RawBytes:   raw,
				ImageBytes: image,
			}
			return nil
		}

		if s.Has(FormatUnicodeText) {
			text, err := s.ReadText()
			if err != nil {
				return err
			}
			item = &Item{CreatedAt: NowUTC(), Type: TypeText, Text: text, ImageBytes: image}
			return nil
		}

		if image != nil {
			item = &Item{CreatedAt: NowUTC(), Type: TypeImage, RawBytes: image}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// readImage probes the bitmap formats richest-first. The image is a
// side-channel: producers often advertise a rendered bitmap next to rich
// text, so finding one never ends the probe.
func (e *Engine) readImage(s Session) []byte {
	for _, f := range []Format{FormatDIBV5, FormatDIB} {
		if !s.Has(f) {
			continue
		}
		data, err := s.Read(f)
		if err != nil {
			slog.Warn("failed to read clipboard image", "format", f, "err", err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		if len(data) > e.maxImageBytes {
			slog.Warn("discarding oversized clipboard image",
				"format", f, "bytes", len(data), "limit", e.maxImageBytes)
			continue
		}
		return data
	}
	return nil
}

// SetItem writes item back onto the clipboard: the inverse of Capture.
// Re-injecting an unknown item is a contract violation and fails loudly.
func (e *Engine) SetItem(item *Item) error {
	switch item.Type {
	case TypeText, TypeFiles, TypeImage, TypeHTML, TypeRTF:
	default:
		return fmt.Errorf("clipboard: cannot re-inject item type %q", item.Type)
	}

	return e.codec.WithClipboard(func(s Session) error {
		if err := s.Clear(); err != nil {
			return err
		}

		switch item.Type {
		case TypeText:
			return s.WriteText(item.Text)

		case TypeFiles:
			return s.WriteFilePaths(item.FilePaths)

		case TypeImage:
			if len(item.RawBytes) == 0 {
				return nil
			}
			return s.Write(FormatDIB, item.RawBytes)

		case TypeHTML:
			return writeRich(s, FormatHTML, item, func(raw []byte) string {
				return extract.HTMLPreview(raw, extract.FallbackTextLen)
			})

		case TypeRTF:
			return writeRich(s, FormatRTF, item, func(raw []byte) string {
				return extract.RTFPreview(raw, extract.FallbackTextLen)
			})
		}
		return nil
	})
}

// writeRich writes the native container bytes plus a plain-text fallback, and
// re-attaches any image side-channel.
func writeRich(s Session, format Format, item *Item, toText func([]byte) string) error {
	plain := item.Text
	if len(item.RawBytes) > 0 {
		if err := s.Write(format, item.RawBytes); err != nil {
			return err
		}
		if p := toText(item.RawBytes); p != extract.NoContent {
			plain = p
		}
	}
	if err := s.WriteText(plain); err != nil {
		return err
	}
	if len(item.ImageBytes) > 0 {
		return s.Write(FormatDIB, item.ImageBytes)
	}
	return nil
}
