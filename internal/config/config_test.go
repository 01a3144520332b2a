package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 17493, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.HealthAttempts)
	assert.Equal(t, time.Second, cfg.Server.HealthInterval)

	assert.Equal(t, "system", cfg.TTS.ActiveEngine)
	assert.Equal(t, 1.0, cfg.TTS.Rate)

	assert.Equal(t, 250*time.Millisecond, cfg.Pet.ClickWindow)
	assert.Equal(t, 300*time.Millisecond, cfg.Pet.BounceDuration)
	assert.Equal(t, 3*time.Minute, cfg.Pet.IdleThreshold)

	assert.Equal(t, time.Second, cfg.Clipboard.PollInterval)
	assert.False(t, cfg.Clipboard.StartEnabled)
}
