// Package interaction resolves pointer gestures on the cat surface: the
// single/double click disambiguation protocol, context-menu handling, and
// the transient bounce feedback.
package interaction

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/nekotts/internal/menu"
	"github.com/normanking/nekotts/internal/sched"
	"github.com/normanking/nekotts/internal/session"
)

// MenuAction identifies a context-menu item. Each action closes the menu
// before running.
type MenuAction string

const (
	ActionQuickInput    MenuAction = "quick-input"
	ActionReadClipboard MenuAction = "read-clipboard"
	ActionToggleMonitor MenuAction = "toggle-monitor"
	ActionToggleSleep   MenuAction = "toggle-sleep"
)

// Config holds the gesture timing knobs and the context-menu dimensions.
type Config struct {
	ClickWindow    time.Duration // single vs double click disambiguation delay
	BounceDuration time.Duration // how long the bounce feedback flag stays set
	MenuSize       menu.Size
}

// DefaultConfig returns the production gesture timings.
func DefaultConfig() Config {
	return Config{
		ClickWindow:    250 * time.Millisecond,
		BounceDuration: 300 * time.Millisecond,
		MenuSize:       menu.Size{Width: 180, Height: 160},
	}
}

// State is the controller's UI-facing state, published on every change.
type State struct {
	MenuOpen     bool       `json:"menuOpen"`
	MenuPosition menu.Point `json:"menuPosition"`
	Bouncing     bool       `json:"bouncing"`
}

// Controller translates gestures into session transitions.
type Controller struct {
	mu sync.Mutex

	session *session.Session
	cmd     session.Commander
	cfg     Config
	logger  zerolog.Logger

	click  sched.Slot
	bounce sched.Slot

	clickPending bool
	menuOpen     bool
	menuPos      menu.Point
	bouncing     bool

	onChange func(State)
}

// New creates a controller for the given session.
func New(cfg Config, sess *session.Session, cmd session.Commander, logger zerolog.Logger) *Controller {
	return &Controller{
		session: sess,
		cmd:     cmd,
		cfg:     cfg,
		logger:  logger.With().Str("component", "interaction").Logger(),
	}
}

// SetOnChange sets the callback invoked after every UI-state change.
func (c *Controller) SetOnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Close cancels pending gesture timers.
func (c *Controller) Close() {
	c.click.Cancel()
	c.bounce.Cancel()
}

// State returns a copy of the current UI state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		MenuOpen:     c.menuOpen,
		MenuPosition: c.menuPos,
		Bouncing:     c.bouncing,
	}
}

// publishLocked copies the state and releases the lock before invoking the
// change callback.
func (c *Controller) publishLocked() {
	st := c.stateLocked()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// PrimaryClick handles a primary pointer press on the cat. An open context
// menu consumes the click. Otherwise the deferred-action timer starts; a
// second click inside the window cancels it and opens the studio instead,
// so the single-click action never fires for a double click.
func (c *Controller) PrimaryClick() {
	c.mu.Lock()
	if c.menuOpen {
		c.menuOpen = false
		c.publishLocked()
		return
	}

	if c.clickPending {
		c.clickPending = false
		c.click.Cancel()
		c.mu.Unlock()

		go func() {
			if err := c.cmd.OpenStudio(context.Background()); err != nil {
				c.logger.Error().Err(err).Msg("failed to open studio")
			}
		}()
		return
	}

	c.clickPending = true
	c.click.Schedule(c.cfg.ClickWindow, c.fireSingleClick)
	c.mu.Unlock()
}

// fireSingleClick runs when the disambiguation window elapses unopposed:
// stop active playback, or toggle the input box with a happy blip when the
// cat was idle or sleeping. A sleeping cat's click still toggles the input
// box; waking is a separate context-menu action.
func (c *Controller) fireSingleClick() {
	c.mu.Lock()
	if !c.clickPending {
		c.mu.Unlock()
		return
	}
	c.clickPending = false
	c.bouncing = true
	c.bounce.Schedule(c.cfg.BounceDuration, c.clearBounce)
	c.publishLocked()

	snap := c.session.Snapshot()
	if snap.Playback == session.PlaybackSynthesizing || snap.Playback == session.PlaybackPlaying {
		c.session.StopSpeaking()
		return
	}
	if snap.Mood == session.MoodIdle || snap.Mood == session.MoodSleeping {
		c.session.TriggerHappy()
	}
	c.session.ToggleInput()
}

func (c *Controller) clearBounce() {
	c.mu.Lock()
	if !c.bouncing {
		c.mu.Unlock()
		return
	}
	c.bouncing = false
	c.publishLocked()
}

// SecondaryClick opens the context menu at a boundary-clamped position. It
// preempts a pending primary click.
func (c *Controller) SecondaryClick(click menu.Point, viewport menu.Size) {
	c.mu.Lock()
	c.clickPending = false
	c.click.Cancel()
	c.menuOpen = true
	c.menuPos = menu.Place(click, c.cfg.MenuSize, viewport)
	c.publishLocked()
}

// CloseMenu dismisses the context menu without running an action.
func (c *Controller) CloseMenu() {
	c.mu.Lock()
	if !c.menuOpen {
		c.mu.Unlock()
		return
	}
	c.menuOpen = false
	c.publishLocked()
}

// HandleMenuAction closes the menu and runs the chosen action.
func (c *Controller) HandleMenuAction(action MenuAction) {
	c.mu.Lock()
	c.menuOpen = false
	c.publishLocked()

	switch action {
	case ActionQuickInput:
		c.session.ShowInput()
	case ActionReadClipboard:
		go c.readClipboardAloud()
	case ActionToggleMonitor:
		c.session.ToggleClipboardMonitor()
	case ActionToggleSleep:
		c.session.ToggleSleep()
	default:
		c.logger.Warn().Str("action", string(action)).Msg("unknown menu action")
	}
}

// readClipboardAloud speaks the clipboard text. Empty or unreadable
// clipboards are silently ignored.
func (c *Controller) readClipboardAloud() {
	text, err := c.cmd.ReadClipboardText(context.Background())
	if err != nil {
		c.logger.Debug().Err(err).Msg("clipboard unreadable")
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	c.session.Speak(text)
}
