// Package clipboard watches the system clipboard and reads it on demand.
package clipboard

import (
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// Monitor polls the clipboard and reports new non-blank text while enabled.
// The monitor owns the enabled flag; callers adopt the value Toggle returns.
type Monitor struct {
	mu       sync.Mutex
	enabled  bool
	last     string
	onText   func(string)
	running  bool
	stopCh   chan struct{}
	interval time.Duration
	logger   zerolog.Logger

	// read is swapped out in tests.
	read func() (string, error)
}

// New creates a clipboard monitor polling at the given interval.
func New(interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		interval: interval,
		logger:   logger.With().Str("component", "clipboard").Logger(),
		read:     clipboard.ReadAll,
	}
}

// SetOnText sets the callback for newly observed clipboard text.
func (m *Monitor) SetOnText(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onText = fn
}

// Start begins the polling loop. Safe to call once.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	go m.loop(m.stopCh)
}

// Stop halts the polling loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
}

func (m *Monitor) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	m.mu.Lock()
	enabled := m.enabled
	read := m.read
	m.mu.Unlock()

	if !enabled {
		return
	}

	text, err := read()
	if err != nil {
		// Clipboards are unreadable surprisingly often (locked, non-text).
		m.logger.Debug().Err(err).Msg("clipboard read failed")
		return
	}

	m.mu.Lock()
	if text == m.last || strings.TrimSpace(text) == "" {
		m.mu.Unlock()
		return
	}
	m.last = text
	fn := m.onText
	m.mu.Unlock()

	if fn != nil {
		fn(text)
	}
}

// Toggle flips the monitor and returns the new enabled state.
func (m *Monitor) Toggle() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = !m.enabled
	m.logger.Info().Bool("enabled", m.enabled).Msg("clipboard monitor toggled")
	return m.enabled, nil
}

// SetEnabled sets the monitor state directly (startup configuration).
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Enabled reports the current monitor state.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// ReadText performs a one-shot clipboard read for the hotkey and
// context-menu paths.
func (m *Monitor) ReadText() (string, error) {
	m.mu.Lock()
	read := m.read
	m.mu.Unlock()
	return read()
}
