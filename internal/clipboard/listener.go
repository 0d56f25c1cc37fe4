package clipboard

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// DefaultDebounce is how long the listener waits after the last change
// notification before capturing. Many applications write the clipboard
// format-by-format for one logical copy, producing a burst of notifications.
const DefaultDebounce = 120 * time.Millisecond

// pumpInterval is how often the event loop drains the native message target.
const pumpInterval = 20 * time.Millisecond

// State of the listener lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// RegisterCode classifies the outcome of a hotkey registration so callers can
// pick a fallback combination.
type RegisterCode int

const (
	RegisterOK            RegisterCode = iota
	RegisterConflict                   // combination already bound by another process
	RegisterInvalidTarget              // native target missing or listener not running
	RegisterUnsupported                // platform has no global hotkey facility
	RegisterFailed                     // any other OS failure
)

func (c RegisterCode) String() string {
	switch c {
	case RegisterOK:
		return "ok"
	case RegisterConflict:
		return "conflict"
	case RegisterInvalidTarget:
		return "invalid-target"
	case RegisterUnsupported:
		return "unsupported"
	}
	return "failed"
}

// Event is delivered to the listener's consumer: either a captured item or a
// hotkey press.
type Event struct {
	Item     *Item
	HotkeyID int
}

// TargetEvent is one native notification drained by Target.Pump.
type TargetEvent struct {
	ClipboardChanged bool
	HotkeyID         int
}

// Target is the native message target: the hidden window (or platform
// equivalent) that owns the clipboard-change subscription and hotkey
// registrations. Every method is called only from the event-loop goroutine,
// which stays locked to one OS thread for the target's lifetime. The native
// registration API only accepts calls from the thread owning the target.
type Target interface {
	// Pump drains pending native notifications without blocking.
	Pump(emit func(TargetEvent))
	RegisterHotkey(id int, modifiers, vk uint16) RegisterCode
	UnregisterHotkey(id int)
	Close()
}

// TargetFactory creates the Target on the event-loop goroutine. Failure means
// the listener cannot observe clipboard changes and is fatal to Start.
type TargetFactory func() (Target, error)

type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdUnregister
	cmdStop
)

type command struct {
	kind      cmdKind
	id        int
	modifiers uint16
	vk        uint16
	reply     chan RegisterCode
}

// Listener owns the dedicated event-loop goroutine. Clipboard notifications
// are debounced into single capture invocations; hotkey (de)registrations are
// serialized onto the loop via the command channel rather than called from
// other threads.
type Listener struct {
	capture   func() (*Item, error)
	newTarget TargetFactory
	debounce  time.Duration
	events    chan Event

	mu    sync.Mutex
	state State
	cmds  chan command
	done  chan struct{}
	ready chan struct{}
}

func NewListener(capture func() (*Item, error), newTarget TargetFactory, debounce time.Duration) *Listener {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Listener{
		capture:   capture,
		newTarget: newTarget,
		debounce:  debounce,
		events:    make(chan Event, 100),
	}
}

// Events is the consumer-facing sink. Delivery never blocks the event loop;
// if the consumer falls 100 events behind, further events are dropped.
func (l *Listener) Events() <-chan Event { return l.events }

func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start spawns the event loop and blocks until the native target exists. A
// failure to subscribe to clipboard notifications is fatal and returned here.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		return fmt.Errorf("clipboard: listener already started")
	}
	l.state = StateStarting
	l.cmds = make(chan command, 16)
	l.done = make(chan struct{})
	l.ready = make(chan struct{})
	l.mu.Unlock()

	startErr := make(chan error, 1)
	go l.run(startErr)

	if err := <-startErr; err != nil {
		l.mu.Lock()
		l.state = StateStopped
		l.mu.Unlock()
		return fmt.Errorf("clipboard: start listener: %w", err)
	}
	return nil
}

// WaitReady blocks until the native target exists, so hotkey registrations
// issued right after Start cannot race target creation.
func (l *Listener) WaitReady(timeout time.Duration) bool {
	l.mu.Lock()
	ready := l.ready
	l.mu.Unlock()
	if ready == nil {
		return false
	}
	select {
	case <-ready:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stop requests orderly shutdown and joins the event loop, bounded by
// timeout. It is idempotent and safe to call from any goroutine; the loop is
// never force-killed.
func (l *Listener) Stop(timeout time.Duration) {
	l.mu.Lock()
	switch l.state {
	case StateStopped, StateStarting:
		l.mu.Unlock()
		return
	case StateStopping:
		done := l.done
		l.mu.Unlock()
		waitDone(done, timeout)
		return
	}
	l.state = StateStopping
	cmds, done := l.cmds, l.done
	l.mu.Unlock()

	select {
	case cmds <- command{kind: cmdStop}:
	case <-done:
		return
	}
	waitDone(done, timeout)
}

func waitDone(done <-chan struct{}, timeout time.Duration) {
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("clipboard listener did not stop within timeout")
	}
}

// RegisterHotkey binds a global hotkey, serialized onto the event loop. The
// returned code distinguishes conflicts from structural failures so the
// caller can fall back to alternative combinations.
func (l *Listener) RegisterHotkey(id int, modifiers, vk uint16) (bool, RegisterCode) {
	cmds, done, ok := l.loopChannels()
	if !ok {
		return false, RegisterInvalidTarget
	}
	reply := make(chan RegisterCode, 1)
	select {
	case cmds <- command{kind: cmdRegister, id: id, modifiers: modifiers, vk: vk, reply: reply}:
	case <-done:
		return false, RegisterInvalidTarget
	}
	select {
	case code := <-reply:
		return code == RegisterOK, code
	case <-done:
		return false, RegisterInvalidTarget
	}
}

func (l *Listener) UnregisterHotkey(id int) {
	cmds, done, ok := l.loopChannels()
	if !ok {
		return
	}
	select {
	case cmds <- command{kind: cmdUnregister, id: id}:
	case <-done:
	}
}

func (l *Listener) loopChannels() (chan command, chan struct{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return nil, nil, false
	}
	return l.cmds, l.done, true
}

// run is the event loop. Native-handle operations all happen here, on a
// single locked OS thread.
func (l *Listener) run(startErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	defer close(done)

	target, err := l.newTarget()
	if err != nil {
		startErr <- err
		return
	}

	l.mu.Lock()
	l.state = StateRunning
	l.mu.Unlock()
	close(l.ready)
	startErr <- nil
	slog.Debug("clipboard listener running")

	pump := time.NewTicker(pumpInterval)
	defer pump.Stop()

	var debounce *time.Timer
	debounceC := func() <-chan time.Time {
		if debounce == nil {
			return nil
		}
		return debounce.C
	}
	hotkeys := make(map[int]struct{})

	for {
		select {
		case <-pump.C:
			target.Pump(func(ev TargetEvent) {
				switch {
				case ev.ClipboardChanged:
					// Rearm: only the trailing edge of a burst captures.
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.NewTimer(l.debounce)
				case ev.HotkeyID != 0:
					l.emit(Event{HotkeyID: ev.HotkeyID})
				}
			})

		case <-debounceC():
			debounce = nil
			// Capture acquires the global clipboard lock; keep it off the
			// loop so a contended lock never stalls notification handling.
			go l.runCapture()

		case cmd := <-l.cmds:
			switch cmd.kind {
			case cmdRegister:
				code := target.RegisterHotkey(cmd.id, cmd.modifiers, cmd.vk)
				if code == RegisterOK {
					hotkeys[cmd.id] = struct{}{}
				}
				cmd.reply <- code

			case cmdUnregister:
				target.UnregisterHotkey(cmd.id)
				delete(hotkeys, cmd.id)

			case cmdStop:
				if debounce != nil {
					debounce.Stop()
				}
				for id := range hotkeys {
					target.UnregisterHotkey(id)
				}
				target.Close()
				l.mu.Lock()
				l.state = StateStopped
				l.mu.Unlock()
				slog.Debug("clipboard listener stopped")
				return
			}
		}
	}
}

func (l *Listener) runCapture() {
	if l.State() != StateRunning {
		return
	}
	item, err := l.capture()
	if err != nil {
		// Transient contention on the clipboard lock fails this one event
		// only; the listener keeps running.
		slog.Warn("clipboard capture failed", "err", err)
		return
	}
	if item != nil {
		l.emit(Event{Item: item})
	}
}

func (l *Listener) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
		slog.Warn("dropping clipboard event, consumer too slow", "hotkey_id", ev.HotkeyID)
	}
}
