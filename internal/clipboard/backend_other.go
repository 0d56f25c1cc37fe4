//go:build !windows

package clipboard

import (
	"context"
	"fmt"
	"sync"

	xclip "golang.design/x/clipboard"
)

var initOnce sync.Once
var initErr error

func ensureInit() error {
	initOnce.Do(func() { initErr = xclip.Init() })
	return initErr
}

// NewSystemCodec returns a text and image codec. Platforms without a native
// message loop expose only the two formats golang.design/x/clipboard carries.
func NewSystemCodec() (Codec, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	return portableCodec{}, nil
}

type portableCodec struct{}

func (portableCodec) WithClipboard(fn func(Session) error) error {
	return fn(portableSession{})
}

type portableSession struct{}

func (portableSession) Has(f Format) bool {
	switch f {
	case FormatUnicodeText:
		return len(xclip.Read(xclip.FmtText)) > 0
	case FormatDIB:
		return len(xclip.Read(xclip.FmtImage)) > 0
	}
	return false
}

func (portableSession) Read(f Format) ([]byte, error) {
	switch f {
	case FormatUnicodeText:
		return xclip.Read(xclip.FmtText), nil
	case FormatDIB:
		return xclip.Read(xclip.FmtImage), nil
	}
	return nil, fmt.Errorf("clipboard: format %v not supported on this platform", f)
}

func (portableSession) ReadText() (string, error) {
	return string(xclip.Read(xclip.FmtText)), nil
}

func (portableSession) ReadFilePaths() ([]string, error) {
	return nil, fmt.Errorf("clipboard: file drop not supported on this platform")
}

func (portableSession) Clear() error {
	xclip.Write(xclip.FmtText, nil)
	return nil
}

func (portableSession) Write(f Format, data []byte) error {
	switch f {
	case FormatUnicodeText:
		xclip.Write(xclip.FmtText, data)
		return nil
	case FormatDIB:
		xclip.Write(xclip.FmtImage, data)
		return nil
	}
	return fmt.Errorf("clipboard: format %v not supported on this platform", f)
}

func (portableSession) WriteText(s string) error {
	xclip.Write(xclip.FmtText, []byte(s))
	return nil
}

func (portableSession) WriteFilePaths([]string) error {
	return fmt.Errorf("clipboard: file drop not supported on this platform")
}

// SystemTargetFactory watches for text and image changes. Hotkeys are not
// available without a native message window.
func SystemTargetFactory() TargetFactory {
	return func() (Target, error) {
		if err := ensureInit(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		t := &portableTarget{cancel: cancel}
		go t.watch(xclip.Watch(ctx, xclip.FmtText))
		go t.watch(xclip.Watch(ctx, xclip.FmtImage))
		return t, nil
	}
}

type portableTarget struct {
	cancel  context.CancelFunc
	mu      sync.Mutex
	pending int
}

func (t *portableTarget) watch(ch <-chan []byte) {
	for range ch {
		t.mu.Lock()
		t.pending++
		t.mu.Unlock()
	}
}

func (t *portableTarget) Pump(emit func(TargetEvent)) {
	t.mu.Lock()
	n := t.pending
	t.pending = 0
	t.mu.Unlock()
	for ; n > 0; n-- {
		emit(TargetEvent{ClipboardChanged: true})
	}
}

func (t *portableTarget) RegisterHotkey(int, uint16, uint16) RegisterCode {
	return RegisterUnsupported
}

func (t *portableTarget) UnregisterHotkey(int) {}

func (t *portableTarget) Close() { t.cancel() }
