package bridge

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/session"
	"github.com/normanking/nekotts/internal/voicebox"
)

// SpeechBridge exposes speech playback controls and engine selection to
// the frontend.
type SpeechBridge struct {
	ctx    context.Context
	sess   *session.Session
	client *voicebox.Client
	logger zerolog.Logger
}

// NewSpeechBridge creates the speech bridge.
func NewSpeechBridge(sess *session.Session, client *voicebox.Client, logger zerolog.Logger) *SpeechBridge {
	return &SpeechBridge{
		sess:   sess,
		client: client,
		logger: logger.With().Str("component", "speech-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context.
func (b *SpeechBridge) Bind(ctx context.Context) {
	b.ctx = ctx
}

// Speak synthesizes text with the active engine.
func (b *SpeechBridge) Speak(text string) {
	b.sess.Speak(text)
}

// Stop halts synthesis and playback.
func (b *SpeechBridge) Stop() {
	b.sess.StopSpeaking()
}

// Pause pauses playback.
func (b *SpeechBridge) Pause() {
	b.sess.PauseSpeaking()
}

// Resume resumes paused playback.
func (b *SpeechBridge) Resume() {
	b.sess.ResumeSpeaking()
}

// RefreshEngines asks the server for the engine list. The result arrives
// through the pet:stateChanged event.
func (b *SpeechBridge) RefreshEngines() {
	b.sess.FetchEngines()
}

// SetActiveEngine switches the engine used for synthesis.
func (b *SpeechBridge) SetActiveEngine(name string) {
	b.sess.SetActiveEngine(name)
}

// GetVoices lists the voices available for an engine.
func (b *SpeechBridge) GetVoices(engine string) []voicebox.Voice {
	voices, err := b.client.Voices(b.ctx, engine)
	if err != nil {
		b.logger.Warn().Err(err).Str("engine", engine).Msg("failed to list voices")
		if b.ctx != nil {
			runtime.EventsEmit(b.ctx, "speech:voicesError", err.Error())
		}
		return nil
	}
	return voices
}
