package clipboard

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu           sync.Mutex
	queue        []TargetEvent
	registered   map[int]struct{}
	conflicts    map[int]bool
	unregistered []int
	closed       bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		registered: make(map[int]struct{}),
		conflicts:  make(map[int]bool),
	}
}

func (t *fakeTarget) push(ev TargetEvent) {
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()
}

func (t *fakeTarget) Pump(emit func(TargetEvent)) {
	t.mu.Lock()
	queue := t.queue
	t.queue = nil
	t.mu.Unlock()
	for _, ev := range queue {
		emit(ev)
	}
}

func (t *fakeTarget) RegisterHotkey(id int, modifiers, vk uint16) RegisterCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conflicts[id] {
		return RegisterConflict
	}
	t.registered[id] = struct{}{}
	return RegisterOK
}

func (t *fakeTarget) UnregisterHotkey(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.registered, id)
	t.unregistered = append(t.unregistered, id)
}

func (t *fakeTarget) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *fakeTarget) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func startedListener(t *testing.T, target *fakeTarget, capture func() (*Item, error)) *Listener {
	t.Helper()
	if capture == nil {
		capture = func() (*Item, error) { return nil, nil }
	}
	l := NewListener(capture, func() (Target, error) { return target, nil }, 40*time.Millisecond)
	require.NoError(t, l.Start())
	require.True(t, l.WaitReady(time.Second))
	t.Cleanup(func() { l.Stop(time.Second) })
	return l
}

func TestStartFailureIsFatal(t *testing.T) {
	l := NewListener(
		func() (*Item, error) { return nil, nil },
		func() (Target, error) { return nil, errors.New("no clipboard subscription") },
		0,
	)
	err := l.Start()
	require.Error(t, err)
	assert.Equal(t, StateStopped, l.State())
	assert.False(t, l.WaitReady(10*time.Millisecond))
}

func TestLifecycle(t *testing.T) {
	target := newFakeTarget()
	l := startedListener(t, target, nil)
	assert.Equal(t, StateRunning, l.State())

	l.Stop(time.Second)
	assert.Equal(t, StateStopped, l.State())
	assert.True(t, target.isClosed())

	// Idempotent from any goroutine.
	l.Stop(time.Second)
	done := make(chan struct{})
	go func() { l.Stop(time.Second); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("concurrent Stop blocked")
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	var captures atomic.Int32
	target := newFakeTarget()
	l := startedListener(t, target, func() (*Item, error) {
		captures.Add(1)
		return &Item{CreatedAt: NowUTC(), Type: TypeText, Text: "burst"}, nil
	})

	// One logical copy surfaces as several notifications.
	for i := 0; i < 6; i++ {
		target.push(TargetEvent{ClipboardChanged: true})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case ev := <-l.Events():
		require.NotNil(t, ev.Item)
		assert.Equal(t, "burst", ev.Item.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no capture event after debounce window")
	}

	// The burst must have produced exactly one capture.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), captures.Load())
}

func TestSeparatedChangesCaptureSeparately(t *testing.T) {
	var captures atomic.Int32
	target := newFakeTarget()
	l := startedListener(t, target, func() (*Item, error) {
		n := captures.Add(1)
		return &Item{CreatedAt: NowUTC(), Type: TypeText, Text: string(rune('a' + n))}, nil
	})

	target.push(TargetEvent{ClipboardChanged: true})
	require.NotNil(t, waitEvent(t, l))
	target.push(TargetEvent{ClipboardChanged: true})
	require.NotNil(t, waitEvent(t, l))
	assert.Equal(t, int32(2), captures.Load())
}

func TestNilCaptureEmitsNothing(t *testing.T) {
	target := newFakeTarget()
	l := startedListener(t, target, func() (*Item, error) { return nil, nil })

	target.push(TargetEvent{ClipboardChanged: true})
	select {
	case ev := <-l.Events():
		t.Fatalf("unexpected event %+v for empty clipboard", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCaptureErrorKeepsListenerRunning(t *testing.T) {
	var captures atomic.Int32
	target := newFakeTarget()
	l := startedListener(t, target, func() (*Item, error) {
		if captures.Add(1) == 1 {
			return nil, errors.New("clipboard busy")
		}
		return &Item{CreatedAt: NowUTC(), Type: TypeText, Text: "recovered"}, nil
	})

	target.push(TargetEvent{ClipboardChanged: true})
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, StateRunning, l.State())

	target.push(TargetEvent{ClipboardChanged: true})
	ev := waitEvent(t, l)
	assert.Equal(t, "recovered", ev.Item.Text)
}

func TestHotkeyEventsForwarded(t *testing.T) {
	target := newFakeTarget()
	l := startedListener(t, target, nil)

	target.push(TargetEvent{HotkeyID: 7})
	select {
	case ev := <-l.Events():
		assert.Equal(t, 7, ev.HotkeyID)
		assert.Nil(t, ev.Item)
	case <-time.After(time.Second):
		t.Fatal("hotkey event not forwarded")
	}
}

func TestRegisterHotkeyLifecycle(t *testing.T) {
	target := newFakeTarget()
	target.conflicts[2] = true
	l := startedListener(t, target, nil)

	ok, code := l.RegisterHotkey(1, 0x01, 'C')
	assert.True(t, ok)
	assert.Equal(t, RegisterOK, code)

	ok, code = l.RegisterHotkey(2, 0x01, 'P')
	assert.False(t, ok, "conflicting combination is non-fatal but reported")
	assert.Equal(t, RegisterConflict, code)
	assert.Equal(t, StateRunning, l.State())

	l.Stop(time.Second)
	target.mu.Lock()
	defer target.mu.Unlock()
	assert.Empty(t, target.registered, "stop unregisters everything")
	assert.Contains(t, target.unregistered, 1)
}

func TestRegisterHotkeyBeforeStartFailsCleanly(t *testing.T) {
	l := NewListener(func() (*Item, error) { return nil, nil },
		func() (Target, error) { return newFakeTarget(), nil }, 0)

	ok, code := l.RegisterHotkey(1, 0x01, 'C')
	assert.False(t, ok)
	assert.Equal(t, RegisterInvalidTarget, code)
}

func TestRestartAfterStop(t *testing.T) {
	target := newFakeTarget()
	l := startedListener(t, target, nil)
	l.Stop(time.Second)

	second := newFakeTarget()
	l.newTarget = func() (Target, error) { return second, nil }
	require.NoError(t, l.Start())
	require.True(t, l.WaitReady(time.Second))
	assert.Equal(t, StateRunning, l.State())
}

func waitEvent(t *testing.T, l *Listener) Event {
	t.Helper()
	select {
	case ev := <-l.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for listener event")
		return Event{}
	}
}
