//go:build windows

// Package win32 wraps the user32/shell32/kernel32 calls behind the Windows
// clipboard codec and the hidden message-only listener window. Everything
// here is thin plumbing; policy (probe order, debounce, retry counts) lives
// in the clipboard package.
package win32

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Standard clipboard format identifiers.
const (
	CFDIB         = 8
	CFUnicodeText = 13
	CFHDrop       = 15
	CFDIBV5       = 17
)

const gmemMoveable = 0x0002

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	shell32  = windows.NewLazySystemDLL("shell32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard              = user32.NewProc("OpenClipboard")
	procCloseClipboard             = user32.NewProc("CloseClipboard")
	procEmptyClipboard             = user32.NewProc("EmptyClipboard")
	procIsClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")
	procGetClipboardData           = user32.NewProc("GetClipboardData")
	procSetClipboardData           = user32.NewProc("SetClipboardData")
	procRegisterClipboardFormatW   = user32.NewProc("RegisterClipboardFormatW")

	procDragQueryFileW = shell32.NewProc("DragQueryFileW")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalSize   = kernel32.NewProc("GlobalSize")
)

// OpenClipboardRetry acquires the global clipboard lock, retrying while
// another process transiently holds it.
func OpenClipboardRetry(hwnd uintptr, retries int, delay time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for i := 0; i < retries; i++ {
		r, _, err := procOpenClipboard.Call(hwnd)
		if r != 0 {
			return nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return fmt.Errorf("OpenClipboard: %w", lastErr)
}

func CloseClipboard() {
	procCloseClipboard.Call() //nolint:errcheck // nothing useful to do on failure
}

func EmptyClipboard() error {
	r, _, err := procEmptyClipboard.Call()
	if r == 0 {
		return fmt.Errorf("EmptyClipboard: %w", err)
	}
	return nil
}

func IsFormatAvailable(format uint32) bool {
	r, _, _ := procIsClipboardFormatAvailable.Call(uintptr(format))
	return r != 0
}

// RegisterFormat resolves a named clipboard format identifier.
func RegisterFormat(name string) (uint32, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	r, _, callErr := procRegisterClipboardFormatW.Call(uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return 0, fmt.Errorf("RegisterClipboardFormat(%s): %w", name, callErr)
	}
	return uint32(r), nil
}

// Registered identifiers for the HTML and RTF container formats are resolved
// once and cached for the process lifetime; the OS never invalidates them.
var (
	htmlOnce sync.Once
	htmlID   uint32
	htmlErr  error
	rtfOnce  sync.Once
	rtfID    uint32
	rtfErr   error
)

func HTMLFormat() (uint32, error) {
	htmlOnce.Do(func() { htmlID, htmlErr = RegisterFormat("HTML Format") })
	return htmlID, htmlErr
}

func RTFFormat() (uint32, error) {
	rtfOnce.Do(func() { rtfID, rtfErr = RegisterFormat("Rich Text Format") })
	return rtfID, rtfErr
}

// ReadBytes copies the payload of an available format out of the clipboard.
// Must be called between OpenClipboardRetry and CloseClipboard.
func ReadBytes(format uint32) ([]byte, error) {
	h, _, err := procGetClipboardData.Call(uintptr(format))
	if h == 0 {
		return nil, fmt.Errorf("GetClipboardData(%d): %w", format, err)
	}
	ptr, _, err := procGlobalLock.Call(h)
	if ptr == 0 {
		return nil, fmt.Errorf("GlobalLock: %w", err)
	}
	defer procGlobalUnlock.Call(h) //nolint:errcheck
	size, _, _ := procGlobalSize.Call(h)
	if size == 0 {
		return nil, nil
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size))
	return out, nil
}

// WriteBytes places data on the clipboard under format. Ownership of the
// allocation passes to the system on success.
func WriteBytes(format uint32, data []byte) error {
	size := len(data)
	if size == 0 {
		size = 1
	}
	h, _, err := procGlobalAlloc.Call(gmemMoveable, uintptr(size))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc: %w", err)
	}
	ptr, _, err := procGlobalLock.Call(h)
	if ptr == 0 {
		procGlobalFree.Call(h) //nolint:errcheck
		return fmt.Errorf("GlobalLock: %w", err)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data)), data)
	procGlobalUnlock.Call(h) //nolint:errcheck

	if r, _, err := procSetClipboardData.Call(uintptr(format), h); r == 0 {
		procGlobalFree.Call(h) //nolint:errcheck
		return fmt.Errorf("SetClipboardData(%d): %w", format, err)
	}
	return nil
}

// ReadText reads CF_UNICODETEXT and decodes the NUL-terminated UTF-16 string.
func ReadText() (string, error) {
	raw, err := ReadBytes(CFUnicodeText)
	if err != nil {
		return "", err
	}
	u := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		c := uint16(raw[i]) | uint16(raw[i+1])<<8
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u)), nil
}

func WriteText(s string) error {
	u := utf16.Encode([]rune(s))
	u = append(u, 0)
	raw := make([]byte, len(u)*2)
	for i, c := range u {
		raw[i*2] = byte(c)
		raw[i*2+1] = byte(c >> 8)
	}
	return WriteBytes(CFUnicodeText, raw)
}

// ReadFilePaths extracts the path list of a CF_HDROP payload, in drop order.
func ReadFilePaths() ([]string, error) {
	h, _, err := procGetClipboardData.Call(CFHDrop)
	if h == 0 {
		return nil, fmt.Errorf("GetClipboardData(CF_HDROP): %w", err)
	}
	count, _, _ := procDragQueryFileW.Call(h, 0xFFFFFFFF, 0, 0)
	paths := make([]string, 0, count)
	for i := uintptr(0); i < count; i++ {
		n, _, _ := procDragQueryFileW.Call(h, i, 0, 0)
		if n == 0 {
			continue
		}
		buf := make([]uint16, n+1)
		procDragQueryFileW.Call(h, i, uintptr(unsafe.Pointer(&buf[0])), n+1) //nolint:errcheck
		paths = append(paths, windows.UTF16ToString(buf))
	}
	return paths, nil
}

// dropFiles mirrors the DROPFILES header preceding the path block of a
// CF_HDROP allocation.
type dropFiles struct {
	pFiles uint32
	pt     [2]int32
	fNC    int32
	fWide  int32
}

// WriteFilePaths places a CF_HDROP payload: a DROPFILES header followed by a
// double-NUL-terminated list of UTF-16 paths, preserving order.
func WriteFilePaths(paths []string) error {
	var block []uint16
	for _, p := range paths {
		block = append(block, utf16.Encode([]rune(p))...)
		block = append(block, 0)
	}
	block = append(block, 0)

	headerSize := int(unsafe.Sizeof(dropFiles{}))
	raw := make([]byte, headerSize+len(block)*2)
	header := (*dropFiles)(unsafe.Pointer(&raw[0]))
	header.pFiles = uint32(headerSize)
	header.fWide = 1
	for i, c := range block {
		raw[headerSize+i*2] = byte(c)
		raw[headerSize+i*2+1] = byte(c >> 8)
	}
	return WriteBytes(CFHDrop, raw)
}
