//go:build windows

package clipboard

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/d8349565/clipboard/internal/win32"
)

// NewSystemCodec returns the Windows multi-format codec.
func NewSystemCodec() (Codec, error) {
	// Resolve the registered container formats up front so failures surface
	// at startup rather than mid-capture.
	if _, err := win32.HTMLFormat(); err != nil {
		return nil, err
	}
	if _, err := win32.RTFFormat(); err != nil {
		return nil, err
	}
	return winCodec{}, nil
}

type winCodec struct{}

func (winCodec) WithClipboard(fn func(Session) error) error {
	err := win32.OpenClipboardRetry(0, OpenRetries, OpenRetryDelay*time.Millisecond)
	if err != nil {
		return err
	}
	defer win32.CloseClipboard()
	return fn(winSession{})
}

type winSession struct{}

func formatID(f Format) (uint32, error) {
	switch f {
	case FormatFileDrop:
		return win32.CFHDrop, nil
	case FormatDIBV5:
		return win32.CFDIBV5, nil
	case FormatDIB:
		return win32.CFDIB, nil
	case FormatHTML:
		return win32.HTMLFormat()
	case FormatRTF:
		return win32.RTFFormat()
	case FormatUnicodeText:
		return win32.CFUnicodeText, nil
	}
	return 0, fmt.Errorf("clipboard: no native id for format %v", f)
}

func (winSession) Has(f Format) bool {
	id, err := formatID(f)
	if err != nil {
		return false
	}
	return win32.IsFormatAvailable(id)
}

func (winSession) Read(f Format) ([]byte, error) {
	id, err := formatID(f)
	if err != nil {
		return nil, err
	}
	return win32.ReadBytes(id)
}

func (winSession) ReadText() (string, error) { return win32.ReadText() }

func (winSession) ReadFilePaths() ([]string, error) { return win32.ReadFilePaths() }

func (winSession) Clear() error { return win32.EmptyClipboard() }

func (winSession) Write(f Format, data []byte) error {
	id, err := formatID(f)
	if err != nil {
		return err
	}
	return win32.WriteBytes(id, data)
}

func (winSession) WriteText(s string) error { return win32.WriteText(s) }

func (winSession) WriteFilePaths(paths []string) error { return win32.WriteFilePaths(paths) }

// SystemTargetFactory creates the hidden message window target, to be invoked
// on the listener's event-loop thread.
func SystemTargetFactory() TargetFactory {
	return func() (Target, error) {
		w, err := win32.NewMessageWindow()
		if err != nil {
			return nil, err
		}
		return &winTarget{w: w}, nil
	}
}

type winTarget struct {
	w *win32.MessageWindow
}

func (t *winTarget) Pump(emit func(TargetEvent)) {
	t.w.Pump(func(n win32.Notification) {
		emit(TargetEvent{ClipboardChanged: n.ClipboardUpdate, HotkeyID: n.HotkeyID})
	})
}

func (t *winTarget) RegisterHotkey(id int, modifiers, vk uint16) RegisterCode {
	switch errno := t.w.RegisterHotkey(id, modifiers, vk); errno {
	case 0:
		return RegisterOK
	case uint32(windows.ERROR_HOTKEY_ALREADY_REGISTERED):
		return RegisterConflict
	case uint32(windows.ERROR_WINDOW_OF_OTHER_THREAD), uint32(windows.ERROR_INVALID_WINDOW_HANDLE):
		return RegisterInvalidTarget
	default:
		return RegisterFailed
	}
}

func (t *winTarget) UnregisterHotkey(id int) { t.w.UnregisterHotkey(id) }

func (t *winTarget) Close() { t.w.Close() }
