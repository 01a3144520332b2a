// Package bridge provides Wails Go-JS bindings.
package bridge

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/normanking/nekotts/internal/bus"
	"github.com/normanking/nekotts/internal/clipboard"
	"github.com/normanking/nekotts/internal/config"
	"github.com/normanking/nekotts/internal/voicebox"
)

// BackendCommander routes session commands to their backends: speech to
// the voicebox-server, clipboard operations to the monitor, and the
// studio request onto the event bus.
type BackendCommander struct {
	client   *voicebox.Client
	monitor  *clipboard.Monitor
	eventBus *bus.EventBus
	cfg      *config.Config
	logger   zerolog.Logger
}

// NewBackendCommander creates the command router.
func NewBackendCommander(
	client *voicebox.Client,
	monitor *clipboard.Monitor,
	eventBus *bus.EventBus,
	cfg *config.Config,
	logger zerolog.Logger,
) *BackendCommander {
	return &BackendCommander{
		client:   client,
		monitor:  monitor,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger.With().Str("component", "commander").Logger(),
	}
}

// Speak submits text for synthesis with the configured voice parameters.
func (c *BackendCommander) Speak(ctx context.Context, text, engine string) error {
	err := c.client.Speak(ctx, &voicebox.SpeakRequest{
		Text:   text,
		Engine: engine,
		Voice:  c.cfg.TTS.Voice,
		Rate:   c.cfg.TTS.Rate,
		Pitch:  c.cfg.TTS.Pitch,
		Volume: c.cfg.TTS.Volume,
	})
	if err != nil {
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSpeechFailed,
			Data: map[string]any{"error": err.Error()},
		})
		return err
	}
	c.eventBus.Publish(bus.Event{
		Type: bus.EventTypeSpeechStarted,
		Data: map[string]any{"engine": engine, "chars": len(text)},
	})
	return nil
}

// StopSpeaking halts synthesis and playback.
func (c *BackendCommander) StopSpeaking(ctx context.Context) error {
	return c.client.Stop(ctx)
}

// PauseSpeaking pauses playback.
func (c *BackendCommander) PauseSpeaking(ctx context.Context) error {
	return c.client.Pause(ctx)
}

// ResumeSpeaking resumes paused playback.
func (c *BackendCommander) ResumeSpeaking(ctx context.Context) error {
	return c.client.Resume(ctx)
}

// ToggleClipboardMonitor flips the monitor and returns its new state.
func (c *BackendCommander) ToggleClipboardMonitor(ctx context.Context) (bool, error) {
	enabled, err := c.monitor.Toggle()
	if err != nil {
		return false, err
	}
	c.eventBus.Publish(bus.Event{
		Type: bus.EventTypeClipboardToggled,
		Data: map[string]any{"enabled": enabled},
	})
	return enabled, nil
}

// ListEngines asks the server which engines it can synthesize with.
func (c *BackendCommander) ListEngines(ctx context.Context) ([]string, error) {
	return c.client.Engines(ctx)
}

// OpenStudio requests the studio window.
func (c *BackendCommander) OpenStudio(ctx context.Context) error {
	c.eventBus.Publish(bus.Event{Type: bus.EventTypeStudioOpen})
	return nil
}

// ReadClipboardText performs a one-shot clipboard read.
func (c *BackendCommander) ReadClipboardText(ctx context.Context) (string, error) {
	return c.monitor.ReadText()
}
