package extract

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// skipDestinations are control words whose group carries formatting or
// metadata rather than document text. Everything inside such a group is
// excluded from the preview.
var skipDestinations = map[string]bool{
	"fonttbl":            true,
	"colortbl":           true,
	"stylesheet":         true,
	"listtable":          true,
	"listoverridetable":  true,
	"revtbl":             true,
	"info":               true,
	"generator":          true,
	"pict":               true,
	"object":             true,
	"objdata":            true,
	"header":             true,
	"headerl":            true,
	"headerr":            true,
	"headerf":            true,
	"footer":             true,
	"footerl":            true,
	"footerr":            true,
	"footerf":            true,
	"footnote":           true,
	"annotation":         true,
	"atnid":              true,
	"atnauthor":          true,
	"xmlnstbl":           true,
	"themedata":          true,
	"colorschememapping": true,
	"datastore":          true,
	"fldinst":            true,
}

// rtfGroup is one entry of the brace-delimited group stack. New groups
// inherit both fields from the enclosing group.
type rtfGroup struct {
	skip bool
	uc   int // fallback characters to skip after each \uN escape
}

// RTFPreview tokenizes a raw RTF stream and returns bounded plain text. The
// tokenizer tracks group nesting so formatting destinations (font tables,
// embedded pictures, annotations) never leak into the output, and honors the
// \ucN fallback-skip pairing of \uN escapes. Malformed input degrades to a
// best-effort result; an empty result is reported as NoContent.
func RTFPreview(raw []byte, maxLen int) string {
	out := normalizeRTFText(rtfToText(raw))
	if out == "" {
		return NoContent
	}
	return cut(out, maxLen)
}

func rtfToText(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))

	stack := []rtfGroup{{uc: 1}}
	cur := func() *rtfGroup { return &stack[len(stack)-1] }
	pendingSkip := 0 // \u fallback characters still to swallow
	star := false    // saw \*, next control word opens an ignorable destination

	emit := func(r rune) {
		if pendingSkip > 0 {
			pendingSkip--
			return
		}
		if !cur().skip {
			b.WriteRune(r)
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '{':
			stack = append(stack, *cur())
			pendingSkip = 0
			i++
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			pendingSkip = 0
			i++
		case '\r', '\n':
			// Raw line breaks are not document text; \par is.
			i++
		case '\\':
			if i+1 >= len(raw) {
				return b.String()
			}
			next := raw[i+1]
			switch {
			case next == '{' || next == '}' || next == '\\':
				emit(rune(next))
				i += 2
			case next == '~':
				emit(' ')
				i += 2
			case next == '-' || next == '_':
				emit('-')
				i += 2
			case next == '*':
				star = true
				i += 2
			case next == '\'':
				if i+3 < len(raw) {
					if hi, ok1 := hexVal(raw[i+2]); ok1 {
						if lo, ok2 := hexVal(raw[i+3]); ok2 {
							emit(charmap.Windows1252.DecodeByte(hi<<4 | lo))
							i += 4
							continue
						}
					}
				}
				i += 2 // malformed hex escape: drop it
			case isAlpha(next):
				word, param, hasParam, ni := readControlWord(raw, i+1)
				i = ni
				switch {
				case star:
					// \* marks the destination ignorable even when the word
					// itself is unrecognized.
					cur().skip = true
					star = false
				case skipDestinations[word]:
					cur().skip = true
				case word == "par" || word == "line":
					emit('\n')
				case word == "tab":
					emit('\t')
				case word == "uc":
					if hasParam && param >= 0 {
						cur().uc = param
					}
				case word == "u" && hasParam:
					n := param
					if n < 0 {
						n += 65536
					}
					emit(rune(n))
					pendingSkip = cur().uc
				case word == "bin" && hasParam && param > 0:
					// \binN is followed by N raw bytes that must not be
					// tokenized.
					if param > len(raw)-i {
						param = len(raw) - i
					}
					i += param
				}
			default:
				// Unknown control symbol: consume and ignore.
				i += 2
			}
		default:
			emit(charmap.Windows1252.DecodeByte(c))
			i++
		}
	}
	return b.String()
}

// readControlWord consumes a control word starting at i (first letter),
// including an optional signed numeric parameter and at most one trailing
// space delimiter. Returns the next read position.
func readControlWord(raw []byte, i int) (word string, param int, hasParam bool, next int) {
	start := i
	for i < len(raw) && isAlpha(raw[i]) {
		i++
	}
	word = string(raw[start:i])

	sign := 1
	if i < len(raw) && raw[i] == '-' {
		sign = -1
		i++
	}
	numStart := i
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i > numStart {
		hasParam = true
		for _, d := range raw[numStart:i] {
			param = param*10 + int(d-'0')
		}
		param *= sign
	} else if sign < 0 {
		i-- // lone '-' was not a parameter
	}

	if i < len(raw) && raw[i] == ' ' {
		i++
	}
	return word, param, hasParam, i
}

// normalizeRTFText collapses intra-line whitespace runs, reduces 3+
// consecutive blank lines to a single blank line and trims the result.
func normalizeRTFText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, ln := range lines {
		ln = strings.TrimSpace(collapseWhitespace(ln))
		if ln == "" {
			blanks++
			continue
		}
		if blanks > 0 && len(out) > 0 {
			if blanks >= 3 {
				blanks = 1
			}
			for ; blanks > 0; blanks-- {
				out = append(out, "")
			}
		}
		blanks = 0
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func hexVal(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
