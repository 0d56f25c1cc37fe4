// Package extract converts opaque clipboard payloads into bounded plain-text
// previews. Both extractors are pure and tolerate arbitrary malformed input:
// clipboard payloads come from other applications and are trusted only as
// opaque bytes.
package extract

import (
	"html"
	"strconv"
	"strings"
	"unicode"
)

// DefaultPreviewLen bounds previews shown in list rows. Re-injection derives
// the plain-text fallback with a much larger bound (FallbackTextLen).
const (
	DefaultPreviewLen = 400
	FallbackTextLen   = 12000
)

// NoContent is the sentinel returned when extraction yields no text, so
// callers can tell "empty document" apart from "extraction not yet run".
const NoContent = "(no content)"

// headerScanLen bounds how far into the payload the CF_HTML header is sought.
const headerScanLen = 4096

// HTMLPreview reduces a CF_HTML container payload to plain text. The header's
// StartFragment/EndFragment offsets bound the fragment when they are present,
// well-ordered and in range; otherwise the whole payload is decoded.
func HTMLPreview(raw []byte, maxLen int) string {
	if frag, ok := htmlFragment(raw); ok {
		if s := htmlToText(frag, maxLen); s != "" {
			return s
		}
	}
	if s := htmlToText(decodeUTF8Lossy(raw), maxLen); s != "" {
		return s
	}
	return NoContent
}

// htmlFragment parses the ASCII container header and slices out the fragment
// byte range. Returns ok=false on any malformed or out-of-range header.
func htmlFragment(raw []byte) (string, bool) {
	header := raw
	if len(header) > headerScanLen {
		header = header[:headerScanLen]
	}
	start, okStart := headerOffset(string(header), "StartFragment:")
	end, okEnd := headerOffset(string(header), "EndFragment:")
	if !okStart || !okEnd {
		return "", false
	}
	if start < 0 || start >= end || end > len(raw) {
		return "", false
	}
	return decodeUTF8Lossy(raw[start:end]), true
}

func headerOffset(header, key string) (int, bool) {
	i := strings.Index(header, key)
	if i < 0 {
		return 0, false
	}
	rest := header[i+len(key):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}

// htmlToText strips markup from an HTML fragment. Script and style blocks are
// dropped with their content so script source never leaks into a preview. A
// dangling unterminated tag at the end of a truncated payload is discarded.
func htmlToText(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		if c != '<' {
			b.WriteByte(c)
			i++
			continue
		}
		gt := strings.IndexByte(s[i:], '>')
		if gt < 0 {
			// Truncated payload: drop the partial tag rather than emit it.
			break
		}
		name := tagName(s[i+1 : i+gt])
		i += gt + 1
		if name == "script" || name == "style" {
			i = skipRawTextBlock(s, i, name)
		}
		b.WriteByte(' ')
	}
	out := html.UnescapeString(b.String())
	out = strings.TrimSpace(collapseWhitespace(out))
	return cut(out, maxLen)
}

// skipRawTextBlock advances past the content and closing tag of a script or
// style element starting at i. An unterminated block swallows the rest of the
// payload, which is the safe direction for preview text.
func skipRawTextBlock(s string, i int, name string) int {
	closing := "</" + name
	for i < len(s) {
		j := indexFold(s[i:], closing)
		if j < 0 {
			return len(s)
		}
		i += j + len(closing)
		gt := strings.IndexByte(s[i:], '>')
		if gt < 0 {
			return len(s)
		}
		return i + gt + 1
	}
	return i
}

func tagName(tag string) string {
	tag = strings.TrimPrefix(tag, "/")
	end := 0
	for end < len(tag) {
		c := tag[end]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			break
		}
		end++
	}
	return strings.ToLower(tag[:end])
}

func indexFold(s, sub string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(sub))
}

func decodeUTF8Lossy(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inRun = true
			continue
		}
		if inRun && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

func cut(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
