package bridge

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/bus"
	"github.com/normanking/nekotts/internal/clipboard"
	"github.com/normanking/nekotts/internal/logstore"
	"github.com/normanking/nekotts/internal/session"
	"github.com/normanking/nekotts/internal/voicebox"
)

// EventBridge glues the event surfaces together: frontend events into the
// session, clipboard captures into speech, and server push events into
// the session and console. Listener registrations are retained and
// released on shutdown.
type EventBridge struct {
	ctx      context.Context
	sess     *session.Session
	monitor  *clipboard.Monitor
	events   *voicebox.EventStream
	store    *logstore.Store
	eventBus *bus.EventBus
	logger   zerolog.Logger

	mu      sync.Mutex
	cancels []func()
}

// NewEventBridge creates the event bridge.
func NewEventBridge(
	sess *session.Session,
	monitor *clipboard.Monitor,
	events *voicebox.EventStream,
	store *logstore.Store,
	eventBus *bus.EventBus,
	logger zerolog.Logger,
) *EventBridge {
	return &EventBridge{
		sess:     sess,
		monitor:  monitor,
		events:   events,
		store:    store,
		eventBus: eventBus,
		logger:   logger.With().Str("component", "event-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context and registers all listeners.
func (b *EventBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.retain(runtime.EventsOn(ctx, "input:submit", func(args ...any) {
		if len(args) == 0 {
			return
		}
		if text, ok := args[0].(string); ok {
			b.sess.Speak(text)
		}
	}))

	b.retain(runtime.EventsOn(ctx, "input:toggle", func(...any) {
		b.sess.ToggleInput()
	}))

	b.retain(runtime.EventsOn(ctx, "input:open", func(...any) {
		b.sess.ShowInput()
	}))

	b.retain(runtime.EventsOn(ctx, "clipboard:read", func(args ...any) {
		if len(args) == 0 {
			return
		}
		if text, ok := args[0].(string); ok {
			b.sess.Speak(text)
		}
	}))

	b.retain(runtime.EventsOn(ctx, "pet:hover", func(args ...any) {
		if len(args) == 0 {
			return
		}
		if hovering, ok := args[0].(bool); ok {
			b.sess.SetHovering(hovering)
		}
	}))

	// Clipboard captures are spoken directly.
	b.monitor.SetOnText(func(text string) {
		b.logger.Debug().Int("chars", len(text)).Msg("clipboard capture")
		b.eventBus.Publish(bus.Event{
			Type: bus.EventTypeClipboardText,
			Data: map[string]any{"chars": len(text)},
		})
		b.sess.Speak(text)
	})

	// Server push events drive playback resolution and the console.
	b.events.SetSpeechDoneCallback(func() {
		b.sess.SpeechDone()
		b.eventBus.Publish(bus.Event{Type: bus.EventTypeSpeechCompleted})
	})
	b.events.SetServerLogCallback(func(level, message, source string) {
		b.store.Append(parseLevel(level), message, parseSource(source))
	})
}

// Shutdown releases the retained frontend listeners.
func (b *EventBridge) Shutdown() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (b *EventBridge) retain(cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels = append(b.cancels, cancel)
}

func parseLevel(level string) logstore.Level {
	switch level {
	case "error":
		return logstore.LevelError
	case "warning", "warn":
		return logstore.LevelWarning
	case "debug":
		return logstore.LevelDebug
	default:
		return logstore.LevelInfo
	}
}

func parseSource(source string) logstore.Source {
	if source == "stderr" {
		return logstore.SourceStderr
	}
	return logstore.SourceStdout
}
