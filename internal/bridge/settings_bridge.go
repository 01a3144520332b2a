package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/config"
)

// SettingsBridge exposes configuration to the studio settings view. Edits
// made outside the app are picked up by the config watcher and pushed to
// the frontend.
type SettingsBridge struct {
	ctx    context.Context
	logger zerolog.Logger

	mu      sync.RWMutex
	cfg     *config.Config
	watcher *config.Watcher
}

// NewSettingsBridge creates the settings bridge.
func NewSettingsBridge(cfg *config.Config, logger zerolog.Logger) *SettingsBridge {
	return &SettingsBridge{
		cfg:    cfg,
		logger: logger.With().Str("component", "settings-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context and starts watching the config file.
func (b *SettingsBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	watcher, err := config.Watch(b.logger, func(cfg *config.Config) {
		b.mu.Lock()
		*b.cfg = *cfg
		b.mu.Unlock()
		if b.ctx != nil {
			runtime.EventsEmit(b.ctx, "settings:changed", cfg)
		}
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("config watcher unavailable")
		return
	}
	b.watcher = watcher
}

// Shutdown stops the config watcher.
func (b *SettingsBridge) Shutdown() {
	if b.watcher != nil {
		b.watcher.Close()
	}
}

// GetConfig returns the current configuration.
func (b *SettingsBridge) GetConfig() config.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return *b.cfg
}

// SetVoice updates the synthesis voice and persists it.
func (b *SettingsBridge) SetVoice(voice string) error {
	return b.update(func(cfg *config.Config) { cfg.TTS.Voice = voice })
}

// SetRate updates the speech rate and persists it.
func (b *SettingsBridge) SetRate(rate float64) error {
	if rate < 0.5 || rate > 2.0 {
		return fmt.Errorf("rate %v out of range [0.5, 2.0]", rate)
	}
	return b.update(func(cfg *config.Config) { cfg.TTS.Rate = rate })
}

// SetPitch updates the speech pitch and persists it.
func (b *SettingsBridge) SetPitch(pitch float64) error {
	if pitch < 0.5 || pitch > 2.0 {
		return fmt.Errorf("pitch %v out of range [0.5, 2.0]", pitch)
	}
	return b.update(func(cfg *config.Config) { cfg.TTS.Pitch = pitch })
}

// SetVolume updates the playback volume and persists it.
func (b *SettingsBridge) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume %v out of range [0, 1]", volume)
	}
	return b.update(func(cfg *config.Config) { cfg.TTS.Volume = volume })
}

// SetClipboardStartEnabled controls whether the clipboard monitor starts
// enabled on launch.
func (b *SettingsBridge) SetClipboardStartEnabled(enabled bool) error {
	return b.update(func(cfg *config.Config) { cfg.Clipboard.StartEnabled = enabled })
}

func (b *SettingsBridge) update(apply func(*config.Config)) error {
	b.mu.Lock()
	apply(b.cfg)
	snapshot := *b.cfg
	b.mu.Unlock()

	if err := config.Save(&snapshot); err != nil {
		b.logger.Error().Err(err).Msg("failed to save config")
		return err
	}
	return nil
}
