// Package config provides configuration management for NekoTTS.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Pet       PetConfig       `mapstructure:"pet"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Window    WindowConfig    `mapstructure:"window"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the managed voicebox-server process.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	PythonPath     string        `mapstructure:"python_path"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	HealthAttempts int           `mapstructure:"health_attempts"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TTSConfig configures speech synthesis defaults.
type TTSConfig struct {
	ActiveEngine string  `mapstructure:"active_engine"` // system, piper, cloud
	Voice        string  `mapstructure:"voice"`
	Rate         float64 `mapstructure:"rate"`   // 0.5 - 2.0
	Pitch        float64 `mapstructure:"pitch"`  // 0.5 - 2.0
	Volume       float64 `mapstructure:"volume"` // 0.0 - 1.0
}

// PetConfig configures the cat's interaction timings.
type PetConfig struct {
	ClickWindow    time.Duration `mapstructure:"click_window"`
	BounceDuration time.Duration `mapstructure:"bounce_duration"`
	IdleThreshold  time.Duration `mapstructure:"idle_threshold"`
	MenuWidth      int           `mapstructure:"menu_width"`
	MenuHeight     int           `mapstructure:"menu_height"`
}

// ClipboardConfig configures the clipboard monitor.
type ClipboardConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StartEnabled bool          `mapstructure:"start_enabled"`
}

// WindowConfig configures the cat window.
type WindowConfig struct {
	Title       string `mapstructure:"title"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	AlwaysOnTop bool   `mapstructure:"always_on_top"`
	Frameless   bool   `mapstructure:"frameless"`
	Transparent bool   `mapstructure:"transparent"`
}

// LogConfig configures application logging.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           17493,
			PythonPath:     "python3",
			HealthInterval: 1 * time.Second,
			HealthAttempts: 120,
			ShutdownGrace:  3 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		TTS: TTSConfig{
			ActiveEngine: "system",
			Rate:         1.0,
			Pitch:        1.0,
			Volume:       1.0,
		},
		Pet: PetConfig{
			ClickWindow:    250 * time.Millisecond,
			BounceDuration: 300 * time.Millisecond,
			IdleThreshold:  3 * time.Minute,
			MenuWidth:      180,
			MenuHeight:     160,
		},
		Clipboard: ClipboardConfig{
			PollInterval: 1 * time.Second,
			StartEnabled: false,
		},
		Window: WindowConfig{
			Title:       "Neko TTS",
			Width:       260,
			Height:      280,
			AlwaysOnTop: true,
			Frameless:   true,
			Transparent: true,
		},
		Log: LogConfig{
			Level:   "debug",
			Console: true,
		},
	}
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".nekotts"), nil
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := Dir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("NEKOTTS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found: persist the defaults for next time.
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file.
func Save(cfg *Config) error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("server", cfg.Server)
	viper.Set("tts", cfg.TTS)
	viper.Set("pet", cfg.Pet)
	viper.Set("clipboard", cfg.Clipboard)
	viper.Set("window", cfg.Window)
	viper.Set("log", cfg.Log)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}
