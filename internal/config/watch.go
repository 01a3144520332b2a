package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the config file when it changes on disk, so engine and
// voice edits made in the settings window (or by hand) apply without a
// restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   zerolog.Logger
	onReload func(*Config)
	done     chan struct{}
}

// Watch starts watching the config file. onReload is called with the freshly
// loaded config after every write to the file.
func Watch(logger zerolog.Logger, onReload func(*Config)) (*Watcher, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace the file rather than write it in
	// place, which would drop a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     path,
		logger:   logger.With().Str("component", "config-watch").Logger(),
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	// Editors fire several events per save; coalesce them.
	var pending <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("config watch error")
		case <-pending:
			pending = nil
			cfg, err := Load()
			if err != nil {
				w.logger.Warn().Err(err).Msg("config reload failed, keeping previous settings")
				continue
			}
			w.logger.Info().Str("engine", cfg.TTS.ActiveEngine).Msg("config reloaded")
			if w.onReload != nil {
				w.onReload(cfg)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
