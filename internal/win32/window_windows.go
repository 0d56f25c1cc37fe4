//go:build windows

package win32

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmDestroy         = 0x0002
	wmHotkey          = 0x0312
	wmClipboardUpdate = 0x031D

	pmRemove = 0x0001

	// HWND_MESSAGE parents a message-only window: no display surface, just a
	// message target.
	hwndMessage = ^uintptr(2)

	className = "ClipHistListener"
)

var (
	procRegisterClassExW              = user32.NewProc("RegisterClassExW")
	procCreateWindowExW               = user32.NewProc("CreateWindowExW")
	procDefWindowProcW                = user32.NewProc("DefWindowProcW")
	procDestroyWindow                 = user32.NewProc("DestroyWindow")
	procPeekMessageW                  = user32.NewProc("PeekMessageW")
	procTranslateMessage              = user32.NewProc("TranslateMessage")
	procDispatchMessageW              = user32.NewProc("DispatchMessageW")
	procAddClipboardFormatListener    = user32.NewProc("AddClipboardFormatListener")
	procRemoveClipboardFormatListener = user32.NewProc("RemoveClipboardFormatListener")
	procRegisterHotKey                = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey              = user32.NewProc("UnregisterHotKey")
)

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type msg struct {
	hwnd    uintptr
	message uint32
	wparam  uintptr
	lparam  uintptr
	time    uint32
	pt      [2]int32
}

// Notification is one native event observed by the message window.
type Notification struct {
	ClipboardUpdate bool
	HotkeyID        int
}

// MessageWindow is the hidden native message target. It must be created,
// pumped and destroyed on the same OS thread; notifications recorded by the
// window procedure are handed out by Pump.
type MessageWindow struct {
	hwnd uintptr

	mu    sync.Mutex
	queue []Notification
}

var (
	registry   sync.Map // hwnd -> *MessageWindow
	classOnce  sync.Once
	classErr   error
	classNameP *uint16
)

func ensureClass() error {
	classOnce.Do(func() {
		classNameP, classErr = windows.UTF16PtrFromString(className)
		if classErr != nil {
			return
		}
		instance, err := windows.GetModuleHandle(nil)
		if err != nil {
			classErr = err
			return
		}
		wc := wndClassEx{
			lpfnWndProc:   syscall.NewCallback(wndProc),
			hInstance:     instance,
			lpszClassName: classNameP,
		}
		wc.cbSize = uint32(unsafe.Sizeof(wc))
		if atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 {
			classErr = fmt.Errorf("RegisterClassEx: %w", err)
		}
	})
	return classErr
}

func wndProc(hwnd, message, wparam, lparam uintptr) uintptr {
	switch message {
	case wmClipboardUpdate:
		if w := lookup(hwnd); w != nil {
			w.enqueue(Notification{ClipboardUpdate: true})
		}
		return 0
	case wmHotkey:
		if w := lookup(hwnd); w != nil {
			w.enqueue(Notification{HotkeyID: int(wparam)})
		}
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, message, wparam, lparam)
	return r
}

func lookup(hwnd uintptr) *MessageWindow {
	if v, ok := registry.Load(hwnd); ok {
		return v.(*MessageWindow)
	}
	return nil
}

func (w *MessageWindow) enqueue(n Notification) {
	w.mu.Lock()
	w.queue = append(w.queue, n)
	w.mu.Unlock()
}

// NewMessageWindow creates the hidden window and subscribes it to clipboard
// change notifications. A subscription failure is fatal: without it the
// listener cannot observe the clipboard at all.
func NewMessageWindow() (*MessageWindow, error) {
	if err := ensureClass(); err != nil {
		return nil, err
	}
	instance, err := windows.GetModuleHandle(nil)
	if err != nil {
		return nil, err
	}
	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(classNameP)),
		uintptr(unsafe.Pointer(classNameP)),
		0, 0, 0, 0, 0,
		hwndMessage,
		0,
		uintptr(instance),
		0,
	)
	if hwnd == 0 {
		return nil, fmt.Errorf("CreateWindowEx: %w", callErr)
	}

	w := &MessageWindow{hwnd: hwnd}
	registry.Store(hwnd, w)

	if r, _, err := procAddClipboardFormatListener.Call(hwnd); r == 0 {
		w.destroy()
		return nil, fmt.Errorf("AddClipboardFormatListener: %w", err)
	}
	return w, nil
}

// HWND exposes the native handle, used to attribute clipboard opens to this
// window.
func (w *MessageWindow) HWND() uintptr { return w.hwnd }

// Pump dispatches all pending window messages and hands the notifications
// they produced to emit. Must run on the creating thread.
func (w *MessageWindow) Pump(emit func(Notification)) {
	var m msg
	for {
		r, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), w.hwnd, 0, 0, pmRemove)
		if r == 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m))) //nolint:errcheck
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m))) //nolint:errcheck
	}

	w.mu.Lock()
	queue := w.queue
	w.queue = nil
	w.mu.Unlock()
	for _, n := range queue {
		emit(n)
	}
}

// RegisterHotkey binds a global hotkey to this window. Returns 0 on success,
// otherwise the Win32 error code (notably ERROR_HOTKEY_ALREADY_REGISTERED
// when another process owns the combination).
func (w *MessageWindow) RegisterHotkey(id int, modifiers, vk uint16) uint32 {
	r, _, err := procRegisterHotKey.Call(w.hwnd, uintptr(id), uintptr(modifiers), uintptr(vk))
	if r != 0 {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok && errno != 0 {
		return uint32(errno)
	}
	return 1
}

func (w *MessageWindow) UnregisterHotkey(id int) {
	procUnregisterHotKey.Call(w.hwnd, uintptr(id)) //nolint:errcheck
}

// Close unsubscribes and destroys the window. Must run on the creating
// thread.
func (w *MessageWindow) Close() {
	procRemoveClipboardFormatListener.Call(w.hwnd) //nolint:errcheck
	w.destroy()
}

func (w *MessageWindow) destroy() {
	registry.Delete(w.hwnd)
	procDestroyWindow.Call(w.hwnd) //nolint:errcheck
	w.hwnd = 0
}
