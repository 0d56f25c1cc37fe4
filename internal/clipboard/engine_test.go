package clipboard

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClipboard is an in-memory Codec+Session standing in for the OS
// clipboard.
type fakeClipboard struct {
	formats map[Format][]byte
	text    *string
	paths   []string
	opens   int
	openErr error
}

func newFakeClipboard() *fakeClipboard {
	return &fakeClipboard{formats: make(map[Format][]byte)}
}

func (f *fakeClipboard) WithClipboard(fn func(Session) error) error {
	f.opens++
	if f.openErr != nil {
		return f.openErr
	}
	return fn(f)
}

func (f *fakeClipboard) Has(format Format) bool {
	switch format {
	case FormatFileDrop:
		return f.paths != nil
	case FormatUnicodeText:
		return f.text != nil
	default:
		return f.formats[format] != nil
	}
}

func (f *fakeClipboard) Read(format Format) ([]byte, error) {
	data, ok := f.formats[format]
	if !ok {
		return nil, fmt.Errorf("format %v not available", format)
	}
	return data, nil
}

func (f *fakeClipboard) ReadText() (string, error) {
	if f.text == nil {
		return "", errors.New("no text on clipboard")
	}
	return *f.text, nil
}

func (f *fakeClipboard) ReadFilePaths() ([]string, error) {
	if f.paths == nil {
		return nil, errors.New("no file drop on clipboard")
	}
	return append([]string{}, f.paths...), nil
}

func (f *fakeClipboard) Clear() error {
	f.formats = make(map[Format][]byte)
	f.text = nil
	f.paths = nil
	return nil
}

func (f *fakeClipboard) Write(format Format, data []byte) error {
	f.formats[format] = append([]byte{}, data...)
	return nil
}

func (f *fakeClipboard) WriteText(s string) error {
	f.text = &s
	return nil
}

func (f *fakeClipboard) WriteFilePaths(paths []string) error {
	f.paths = append([]string{}, paths...)
	return nil
}

func (f *fakeClipboard) setText(s string) { f.text = &s }

func TestCaptureFileDropWinsOverEverything(t *testing.T) {
	fake := newFakeClipboard()
	fake.paths = []string{`C:\b.txt`, `C:\a.txt`}
	fake.setText("also text")
	fake.formats[FormatDIB] = []byte{1, 2}

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeFiles, item.Type)
	assert.Equal(t, []string{`C:\b.txt`, `C:\a.txt`}, item.FilePaths, "drop order preserved")
	assert.Nil(t, item.ImageBytes)
}

func TestCaptureEmptyFileListIsValid(t *testing.T) {
	fake := newFakeClipboard()
	fake.paths = []string{}

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeFiles, item.Type)
	assert.Empty(t, item.FilePaths)
}

func TestCaptureHTMLCarriesImageSideChannel(t *testing.T) {
	fake := newFakeClipboard()
	html := []byte("StartFragment:32\nEndFragment:43\n<b>rich</b>")
	fake.formats[FormatHTML] = html
	fake.formats[FormatDIBV5] = []byte{9, 9, 9}
	fake.setText("plain twin")

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeHTML, item.Type, "html outranks plain text")
	assert.Equal(t, html, item.RawBytes)
	assert.Equal(t, []byte{9, 9, 9}, item.ImageBytes)
	assert.Equal(t, "rich", item.Text, "derived preview attached")
}

func TestCapturePrefersDIBV5OverDIB(t *testing.T) {
	fake := newFakeClipboard()
	fake.formats[FormatDIBV5] = []byte{5}
	fake.formats[FormatDIB] = []byte{1}

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeImage, item.Type)
	assert.Equal(t, []byte{5}, item.RawBytes)
}

func TestCaptureOversizedImageSkippedNotFatal(t *testing.T) {
	fake := newFakeClipboard()
	fake.formats[FormatDIBV5] = make([]byte, 128)
	fake.setText("still captured")

	item, err := NewEngine(fake, 64).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeText, item.Type)
	assert.Equal(t, "still captured", item.Text)
	assert.Nil(t, item.ImageBytes, "oversized image is discarded, not attached")
}

func TestCaptureOversizedDIBV5FallsBackToDIB(t *testing.T) {
	fake := newFakeClipboard()
	fake.formats[FormatDIBV5] = make([]byte, 128)
	fake.formats[FormatDIB] = []byte{1, 2, 3}

	item, err := NewEngine(fake, 64).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeImage, item.Type)
	assert.Equal(t, []byte{1, 2, 3}, item.RawBytes)
}

func TestCaptureRTF(t *testing.T) {
	fake := newFakeClipboard()
	fake.formats[FormatRTF] = []byte(`{\rtf1 Hello\par World}`)

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, TypeRTF, item.Type)
	assert.Equal(t, "Hello\nWorld", item.Text)
}

func TestCaptureEmptyClipboardIsNilNotError(t *testing.T) {
	item, err := NewEngine(newFakeClipboard(), 0).Capture()
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestCapturePropagatesCodecFailure(t *testing.T) {
	fake := newFakeClipboard()
	fake.openErr = errors.New("clipboard held by another process")

	_, err := NewEngine(fake, 0).Capture()
	assert.Error(t, err)
}

func TestSetItemRejectsUnknownType(t *testing.T) {
	err := NewEngine(newFakeClipboard(), 0).SetItem(&Item{CreatedAt: NowUTC(), Type: TypeUnknown})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestRoundTripText(t *testing.T) {
	src := newFakeClipboard()
	src.setText("round trip me\nexactly")
	engine := NewEngine(src, 0)

	item, err := engine.Capture()
	require.NoError(t, err)

	dst := newFakeClipboard()
	dst.setText("stale content")
	require.NoError(t, NewEngine(dst, 0).SetItem(item))

	got, err := dst.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "round trip me\nexactly", got)
}

func TestRoundTripFilesPreservesOrder(t *testing.T) {
	paths := []string{`C:\z\3.txt`, `C:\a\1.txt`, `C:\m\2.txt`}
	src := newFakeClipboard()
	src.paths = paths

	item, err := NewEngine(src, 0).Capture()
	require.NoError(t, err)

	dst := newFakeClipboard()
	require.NoError(t, NewEngine(dst, 0).SetItem(item))
	got, err := dst.ReadFilePaths()
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}

func TestRoundTripImageBytes(t *testing.T) {
	raw := []byte{0x42, 0x4d, 0x00, 0xff, 0x10}
	src := newFakeClipboard()
	src.formats[FormatDIB] = raw

	item, err := NewEngine(src, 0).Capture()
	require.NoError(t, err)

	dst := newFakeClipboard()
	require.NoError(t, NewEngine(dst, 0).SetItem(item))
	got, err := dst.Read(FormatDIB)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestRoundTripRichWritesContainerAndFallback(t *testing.T) {
	raw := []byte(`{\rtf1 Fallback text}`)
	src := newFakeClipboard()
	src.formats[FormatRTF] = raw
	src.formats[FormatDIBV5] = []byte{7}

	item, err := NewEngine(src, 0).Capture()
	require.NoError(t, err)

	dst := newFakeClipboard()
	require.NoError(t, NewEngine(dst, 0).SetItem(item))

	container, err := dst.Read(FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, raw, container, "container bytes round-trip exactly")

	plain, err := dst.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "Fallback text", plain)

	img, err := dst.Read(FormatDIB)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, img, "image side-channel re-attached")
}

func TestSetItemClearsPreviousContent(t *testing.T) {
	dst := newFakeClipboard()
	dst.paths = []string{`C:\old.txt`}
	dst.formats[FormatHTML] = []byte("old")

	require.NoError(t, NewEngine(dst, 0).SetItem(&Item{CreatedAt: NowUTC(), Type: TypeText, Text: "new"}))
	assert.False(t, dst.Has(FormatFileDrop))
	assert.False(t, dst.Has(FormatHTML))
	got, err := dst.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestHTMLPreviewBounded(t *testing.T) {
	fake := newFakeClipboard()
	fake.formats[FormatHTML] = []byte("<p>" + strings.Repeat("long ", 400) + "</p>")

	item, err := NewEngine(fake, 0).Capture()
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.LessOrEqual(t, len([]rune(item.Text)), 400)
}
