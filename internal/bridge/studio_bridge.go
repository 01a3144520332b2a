package bridge

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/bus"
	"github.com/normanking/nekotts/internal/session"
	"github.com/normanking/nekotts/internal/voicebox"
)

// BootstrapStatus describes the studio's view of the backend server.
type BootstrapStatus string

const (
	StatusConnecting BootstrapStatus = "connecting"
	StatusConnected  BootstrapStatus = "connected"
	StatusError      BootstrapStatus = "error"
)

// StudioState is the bootstrap state shown in the studio window.
type StudioState struct {
	Status BootstrapStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// StudioBridge owns the backend bootstrap: spawning voicebox-server,
// waiting for it to become healthy, and attaching the event stream.
// The studio window renders its status and offers a retry on failure.
type StudioBridge struct {
	ctx      context.Context
	process  *voicebox.Process
	events   *voicebox.EventStream
	sess     *session.Session
	eventBus *bus.EventBus
	logger   zerolog.Logger

	mu       sync.Mutex
	state    StudioState
	starting bool
}

// NewStudioBridge creates the studio bridge.
func NewStudioBridge(
	process *voicebox.Process,
	events *voicebox.EventStream,
	sess *session.Session,
	eventBus *bus.EventBus,
	logger zerolog.Logger,
) *StudioBridge {
	return &StudioBridge{
		process:  process,
		events:   events,
		sess:     sess,
		eventBus: eventBus,
		logger:   logger.With().Str("component", "studio-bridge").Logger(),
		state:    StudioState{Status: StatusConnecting},
	}
}

// Bind sets the Wails runtime context and begins the bootstrap.
func (b *StudioBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.eventBus.Subscribe(bus.EventTypeStudioOpen, func(bus.Event) {
		if b.ctx != nil {
			runtime.EventsEmit(b.ctx, "studio:open")
		}
	})

	go b.bootstrap(ctx)
}

// GetState returns the current bootstrap state.
func (b *StudioBridge) GetState() StudioState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Retry restarts the bootstrap after a failure.
func (b *StudioBridge) Retry() {
	b.mu.Lock()
	if b.starting || b.state.Status == StatusConnected {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	go b.bootstrap(b.ctx)
}

func (b *StudioBridge) bootstrap(ctx context.Context) {
	b.mu.Lock()
	if b.starting {
		b.mu.Unlock()
		return
	}
	b.starting = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.starting = false
		b.mu.Unlock()
	}()

	b.setState(StudioState{Status: StatusConnecting})
	b.eventBus.Publish(bus.Event{Type: bus.EventTypeServerStarting})

	if err := b.process.Start(ctx); err != nil {
		b.logger.Error().Err(err).Msg("failed to start voicebox-server")
		b.fail(err.Error())
		return
	}

	if err := b.process.WaitHealthy(ctx); err != nil {
		b.logger.Error().Err(err).Msg("voicebox-server never became healthy")
		b.fail(err.Error())
		return
	}

	b.events.Connect(ctx)
	b.sess.FetchEngines()

	b.setState(StudioState{Status: StatusConnected})
	b.eventBus.Publish(bus.Event{Type: bus.EventTypeServerHealthy})
	b.logger.Info().Msg("backend ready")
}

func (b *StudioBridge) fail(msg string) {
	b.setState(StudioState{Status: StatusError, Error: msg})
	b.eventBus.Publish(bus.Event{
		Type: bus.EventTypeServerError,
		Data: map[string]any{"error": msg},
	})
}

func (b *StudioBridge) setState(state StudioState) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()

	if b.ctx != nil {
		runtime.EventsEmit(b.ctx, "studio:statusChanged", state)
	}
	b.eventBus.Publish(bus.Event{
		Type: bus.EventTypeStudioStatusChanged,
		Data: map[string]any{"status": string(state.Status), "error": state.Error},
	})
}
