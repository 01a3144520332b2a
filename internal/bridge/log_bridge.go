package bridge

import (
	"context"
	"os/exec"
	"path/filepath"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/logging"
	"github.com/normanking/nekotts/internal/logstore"
)

// LogBridge exposes the server console to the frontend: the capped entry
// buffer, its filter, and the app log file on disk.
type LogBridge struct {
	ctx    context.Context
	store  *logstore.Store
	logger *logging.Logger
}

// NewLogBridge creates the log bridge.
func NewLogBridge(store *logstore.Store, logger *logging.Logger) *LogBridge {
	return &LogBridge{
		store:  store,
		logger: logger,
	}
}

// Bind sets the Wails context and streams new entries to the frontend.
func (b *LogBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.store.SetOnAppend(func(entry logstore.Entry) {
		if b.ctx != nil {
			runtime.EventsEmit(b.ctx, "log:entry", entry)
		}
	})
}

// GetEntries returns the entries matching the current filter, oldest
// first.
func (b *LogBridge) GetEntries() []logstore.Entry {
	return b.store.Filtered()
}

// SetFilter updates the console filter text.
func (b *LogBridge) SetFilter(text string) {
	b.store.SetFilter(text)
}

// GetFilter returns the current filter text.
func (b *LogBridge) GetFilter() string {
	return b.store.Filter()
}

// SetAutoScroll toggles follow-tail behavior for the console view.
func (b *LogBridge) SetAutoScroll(enabled bool) {
	b.store.SetAutoScroll(enabled)
}

// GetAutoScroll reports whether the console follows the tail.
func (b *LogBridge) GetAutoScroll() bool {
	return b.store.AutoScroll()
}

// Clear empties the console buffer.
func (b *LogBridge) Clear() {
	b.store.Clear()
}

// GetLogPath returns the app log file path.
func (b *LogBridge) GetLogPath() string {
	return b.logger.Path()
}

// OpenLogFile opens the app log file in the default text editor.
func (b *LogBridge) OpenLogFile() error {
	return openPath(b.logger.Path())
}

// OpenLogDir opens the log directory in the file manager.
func (b *LogBridge) OpenLogDir() error {
	return openPath(filepath.Dir(b.logger.Path()))
}

func openPath(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("open", path)
	}
	return cmd.Start()
}
