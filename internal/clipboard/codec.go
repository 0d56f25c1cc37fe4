package clipboard

// Format identifies one OS clipboard format the codec can probe, read or
// write. The engine's probe order over these formats is fixed: file lists and
// bitmaps are unambiguous, HTML/RTF are richer than plain text, and plain
// text is the universal fallback.
type Format int

const (
	FormatFileDrop Format = iota
	FormatDIBV5
	FormatDIB
	FormatHTML
	FormatRTF
	FormatUnicodeText
)

func (f Format) String() string {
	switch f {
	case FormatFileDrop:
		return "file-drop"
	case FormatDIBV5:
		return "dibv5"
	case FormatDIB:
		return "dib"
	case FormatHTML:
		return "html"
	case FormatRTF:
		return "rtf"
	case FormatUnicodeText:
		return "unicode-text"
	}
	return "unknown"
}

// Session is the system clipboard while its global lock is held. Methods are
// valid only inside the Codec callback that produced the session.
type Session interface {
	Has(Format) bool
	Read(Format) ([]byte, error)
	ReadText() (string, error)
	ReadFilePaths() ([]string, error)

	Clear() error
	Write(Format, []byte) error
	WriteText(string) error
	WriteFilePaths([]string) error
}

// Codec owns access to the single system-wide clipboard lock. WithClipboard
// acquires it with bounded retry (the lock can be transiently held by any
// other process), runs fn, and releases on every exit path.
type Codec interface {
	WithClipboard(fn func(Session) error) error
}

// Lock acquisition bounds shared by codec implementations.
const (
	OpenRetries    = 10
	OpenRetryDelay = 20 // milliseconds
)
