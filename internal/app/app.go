// Package app wires the capture listener, in-memory history, persistence and
// favorites into one running service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/d8349565/clipboard/internal/clipboard"
	"github.com/d8349565/clipboard/internal/config"
	"github.com/d8349565/clipboard/internal/favorites"
	"github.com/d8349565/clipboard/internal/history"
	"github.com/d8349565/clipboard/internal/hotkey"
)

// Hotkey ids registered with the native target.
const (
	HotkeyIDShowPanel   = 1
	HotkeyIDTogglePause = 2
)

const stopTimeout = 2 * time.Second

// fallbackHotkeys are tried in order when the configured pair cannot be
// registered, usually because another program already owns the combination.
var fallbackHotkeys = [][2]string{
	{"Alt+C", "Alt+P"},
	{"Alt+V", "Alt+P"},
	{"Ctrl+Shift+V", "Ctrl+Shift+P"},
	{"Ctrl+Alt+V", "Ctrl+Alt+P"},
	{"Alt+Shift+V", "Alt+Shift+P"},
	{"Ctrl+Shift+F8", "Ctrl+Shift+F9"},
	{"Ctrl+Alt+F8", "Ctrl+Alt+F9"},
	{"Win+Alt+V", "Win+Alt+P"},
}

// Clipboard is the capture/re-inject surface of the engine.
type Clipboard interface {
	Capture() (*clipboard.Item, error)
	SetItem(item *clipboard.Item) error
}

// Monitor is the event-loop listener surface used by the app.
type Monitor interface {
	Start() error
	Stop(timeout time.Duration)
	Events() <-chan clipboard.Event
	RegisterHotkey(id int, modifiers, vk uint16) (bool, clipboard.RegisterCode)
	UnregisterHotkey(id int)
}

// Repository is the durable history surface. May be absent when persistence
// is unavailable.
type Repository interface {
	InsertAndTrim(ctx context.Context, item *clipboard.Item, limit int) error
	LoadRecent(ctx context.Context, limit int) ([]*clipboard.Item, error)
	Clear(ctx context.Context) error
	Close() error
}

// Options carries the app's collaborators. Config, History, Favorites,
// Clipboard and Monitor are required; Repository and the callbacks are
// optional.
type Options struct {
	Config     *config.Config
	ConfigPath string

	History    *history.Store
	Favorites  *favorites.Store
	Repository Repository
	Clipboard  Clipboard
	Monitor    Monitor

	// OnHistoryChanged fires after an accepted capture or a clear.
	OnHistoryChanged func()
	// OnShowPanel fires on the show-panel hotkey.
	OnShowPanel func()
	// OnPauseChanged fires whenever the pause state flips.
	OnPauseChanged func(paused bool)
}

type App struct {
	cfg        *config.Config
	configPath string

	history   *history.Store
	favorites *favorites.Store
	repo      Repository
	clip      Clipboard
	monitor   Monitor

	onHistoryChanged func()
	onShowPanel      func()
	onPauseChanged   func(bool)

	mu       sync.Mutex
	paused   bool
	persist  bool
	bindings map[int]hotkey.Spec

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) (*App, error) {
	if opts.Config == nil || opts.History == nil || opts.Favorites == nil ||
		opts.Clipboard == nil || opts.Monitor == nil {
		return nil, fmt.Errorf("app: missing required collaborators")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:              opts.Config,
		configPath:       opts.ConfigPath,
		history:          opts.History,
		favorites:        opts.Favorites,
		repo:             opts.Repository,
		clip:             opts.Clipboard,
		monitor:          opts.Monitor,
		onHistoryChanged: opts.OnHistoryChanged,
		onShowPanel:      opts.OnShowPanel,
		onPauseChanged:   opts.OnPauseChanged,
		bindings:         make(map[int]hotkey.Spec),
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

// Start loads favorites, rehydrates persisted history, starts the listener
// and registers hotkeys. It returns only errors that make the app unusable;
// hotkey registration failures degrade to running without hotkeys.
func (a *App) Start() error {
	if err := a.favorites.Load(); err != nil {
		slog.Warn("failed to load favorites, starting empty", "error", err)
	}

	if a.cfg.PersistEnabled && a.repo != nil {
		a.persist = true
		a.rehydrate()
	}

	if err := a.monitor.Start(); err != nil {
		return fmt.Errorf("failed to start clipboard listener: %w", err)
	}

	a.registerHotkeys()

	a.wg.Add(1)
	go a.consumeEvents()
	return nil
}

// rehydrate replays the persisted rows into the in-memory store, oldest
// first so the newest row ends up at the front.
func (a *App) rehydrate() {
	items, err := a.repo.LoadRecent(a.ctx, a.cfg.MaxItems)
	if err != nil {
		slog.Error("failed to load persisted history", "error", err)
		return
	}
	for i := len(items) - 1; i >= 0; i-- {
		a.history.Add(items[i])
	}
	slog.Info("history rehydrated", "items", a.history.Len())
}

func (a *App) registerHotkeys() {
	candidates := make([][2]string, 0, len(fallbackHotkeys)+1)
	candidates = append(candidates, [2]string{a.cfg.HotkeyShowPanel, a.cfg.HotkeyTogglePause})
	candidates = append(candidates, fallbackHotkeys...)

	for _, cand := range candidates {
		show, err := hotkey.Parse(cand[0])
		if err != nil {
			slog.Warn("invalid show-panel hotkey", "hotkey", cand[0], "error", err)
			continue
		}
		pause, err := hotkey.Parse(cand[1])
		if err != nil {
			slog.Warn("invalid toggle-pause hotkey", "hotkey", cand[1], "error", err)
			continue
		}
		if show.SameBinding(pause) {
			slog.Warn("hotkey pair resolves to the same combination, skipping",
				"show", show.Display, "pause", pause.Display)
			continue
		}

		ok, code := a.monitor.RegisterHotkey(HotkeyIDShowPanel, show.Modifiers, show.VK)
		if code == clipboard.RegisterUnsupported {
			slog.Info("global hotkeys not supported on this platform")
			return
		}
		if !ok {
			slog.Warn("show-panel hotkey unavailable", "hotkey", show.Display, "code", code.String())
			continue
		}
		ok, code = a.monitor.RegisterHotkey(HotkeyIDTogglePause, pause.Modifiers, pause.VK)
		if !ok {
			slog.Warn("toggle-pause hotkey unavailable", "hotkey", pause.Display, "code", code.String())
			a.monitor.UnregisterHotkey(HotkeyIDShowPanel)
			continue
		}

		a.mu.Lock()
		a.bindings[HotkeyIDShowPanel] = show
		a.bindings[HotkeyIDTogglePause] = pause
		a.mu.Unlock()
		slog.Info("hotkeys registered", "show", show.Display, "pause", pause.Display)
		return
	}

	slog.Warn("no hotkey pair could be registered, running without hotkeys")
}

// Bindings returns the effective hotkey bindings, keyed by hotkey id. Empty
// when registration failed or is unsupported.
func (a *App) Bindings() map[int]hotkey.Spec {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]hotkey.Spec, len(a.bindings))
	for id, s := range a.bindings {
		out[id] = s
	}
	return out
}

func (a *App) consumeEvents() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-a.monitor.Events():
			if !ok {
				return
			}
			a.handleEvent(ev)
		}
	}
}

func (a *App) handleEvent(ev clipboard.Event) {
	if ev.Item != nil {
		a.handleCapture(ev.Item)
		return
	}
	switch ev.HotkeyID {
	case HotkeyIDShowPanel:
		if a.onShowPanel != nil {
			a.onShowPanel()
		}
	case HotkeyIDTogglePause:
		a.TogglePause()
	}
}

func (a *App) handleCapture(item *clipboard.Item) {
	a.mu.Lock()
	paused, persist := a.paused, a.persist
	a.mu.Unlock()

	if paused {
		return
	}
	if !a.history.Add(item) {
		return
	}
	if persist && a.repo != nil {
		if err := a.repo.InsertAndTrim(a.ctx, item, a.cfg.MaxItems); err != nil {
			slog.Error("failed to persist item", "type", item.Type, "error", err)
		}
	}
	a.notifyHistoryChanged()
}

func (a *App) notifyHistoryChanged() {
	if a.onHistoryChanged != nil {
		a.onHistoryChanged()
	}
}

// History returns a snapshot of the in-memory history, newest first.
func (a *App) History() []*clipboard.Item {
	return a.history.Items()
}

// CopyItem writes an item back to the system clipboard. The resulting change
// notification is captured normally and deduplicated against the front of
// the history.
func (a *App) CopyItem(item *clipboard.Item) error {
	return a.clip.SetItem(item)
}

// ClearHistory empties the in-memory store and, when persistence is active,
// the database.
func (a *App) ClearHistory(ctx context.Context) error {
	a.history.Clear()
	defer a.notifyHistoryChanged()

	a.mu.Lock()
	persist := a.persist
	a.mu.Unlock()
	if persist && a.repo != nil {
		return a.repo.Clear(ctx)
	}
	return nil
}

// Favorites returns the ordered favorites snapshot.
func (a *App) Favorites() []favorites.Entry {
	return a.favorites.Entries()
}

// ToggleFavorite adds or removes an item from favorites and saves the file.
// It reports whether the item is favorited after the toggle.
func (a *App) ToggleFavorite(item *clipboard.Item) (bool, error) {
	nowFavorited, _ := a.favorites.Toggle(item)
	return nowFavorited, a.favorites.Save()
}

// RemoveFavorite deletes by id and saves if anything changed.
func (a *App) RemoveFavorite(id string) error {
	if !a.favorites.RemoveByID(id) {
		return nil
	}
	return a.favorites.Save()
}

// MoveFavorite reorders a single entry and saves.
func (a *App) MoveFavorite(from, to int) error {
	a.favorites.Move(from, to)
	return a.favorites.Save()
}

// ReorderFavorites applies a full explicit order and saves.
func (a *App) ReorderFavorites(ids []string) error {
	a.favorites.SetOrder(ids)
	return a.favorites.Save()
}

func (a *App) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	changed := a.paused != paused
	a.paused = paused
	a.mu.Unlock()

	if !changed {
		return
	}
	slog.Info("capture pause toggled", "paused", paused)
	if a.onPauseChanged != nil {
		a.onPauseChanged(paused)
	}
}

func (a *App) TogglePause() {
	a.SetPaused(!a.Paused())
}

// PersistEnabled reports whether captures are currently written through to
// the database.
func (a *App) PersistEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.persist
}

// EnablePersistence turns durable history on or off and saves the setting.
// Enabling rehydrates persisted rows into the in-memory store.
func (a *App) EnablePersistence(enabled bool) error {
	if enabled && a.repo == nil {
		return fmt.Errorf("persistence unavailable: no database")
	}

	a.mu.Lock()
	changed := a.persist != enabled
	a.persist = enabled
	a.mu.Unlock()
	if !changed {
		return nil
	}

	if enabled {
		a.rehydrate()
		a.notifyHistoryChanged()
	}

	a.cfg.PersistEnabled = enabled
	if a.configPath == "" {
		return nil
	}
	if err := a.cfg.Save(a.configPath); err != nil {
		return fmt.Errorf("failed to save persistence setting: %w", err)
	}
	return nil
}

// Close stops the listener, waits for the event consumer and closes the
// database. Safe to call more than once.
func (a *App) Close() {
	a.cancel()
	a.monitor.Stop(stopTimeout)
	a.wg.Wait()
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
		a.repo = nil
	}
}
