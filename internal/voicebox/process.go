package voicebox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/nekotts/internal/logstore"
)

// ProcessConfig configures the managed voicebox-server child process.
type ProcessConfig struct {
	Host           string
	Port           int
	PythonPath     string        // python3 interpreter, NEKO_PYTHON overrides
	DataDir        string        // server data directory
	HealthInterval time.Duration // delay between readiness probes
	HealthAttempts int           // readiness probe budget
	ShutdownGrace  time.Duration // wait after /shutdown before killing
}

// DefaultProcessConfig returns the production settings.
func DefaultProcessConfig() *ProcessConfig {
	return &ProcessConfig{
		Host:           "127.0.0.1",
		Port:           17493,
		PythonPath:     "python3",
		HealthInterval: 1 * time.Second,
		HealthAttempts: 120,
		ShutdownGrace:  3 * time.Second,
	}
}

// Process manages the voicebox-server child. Its stdout/stderr are scanned
// line by line into the log store for the studio diagnostics view.
type Process struct {
	cfg    *ProcessConfig
	client *Client
	store  *logstore.Store
	logger zerolog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewProcess creates a process manager. The client is used for readiness
// probes and graceful shutdown.
func NewProcess(cfg *ProcessConfig, client *Client, store *logstore.Store, logger zerolog.Logger) *Process {
	if cfg == nil {
		cfg = DefaultProcessConfig()
	}
	return &Process{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger.With().Str("component", "voicebox-process").Logger(),
	}
}

// Start spawns the server if it is not already running. An externally
// started server on the same port is detected and left alone.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		return nil
	}

	// An external instance may already be serving.
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := p.client.Health(probeCtx)
	cancel()
	if err == nil {
		p.logger.Info().Msg("external voicebox-server already running")
		return nil
	}

	python := p.cfg.PythonPath
	if env := os.Getenv("NEKO_PYTHON"); env != "" {
		python = env
	}
	script := resolveServerScript()

	dataDir := p.cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		dataDir = filepath.Join(home, ".nekotts", "voicebox-data")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	cmd := exec.Command(python, script,
		"--host", p.cfg.Host,
		"--port", fmt.Sprintf("%d", p.cfg.Port),
		"--data-dir", dataDir,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn %s %s: %w", python, script, err)
	}
	p.logger.Info().Int("pid", cmd.Process.Pid).Str("script", script).Msg("voicebox-server spawned")
	p.cmd = cmd

	go p.scanPipe(stdout, logstore.SourceStdout)
	go p.scanPipe(stderr, logstore.SourceStderr)

	return nil
}

// scanPipe feeds server output into the log store, one entry per line.
func (p *Process) scanPipe(pipe io.Reader, source logstore.Source) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		p.store.Append(classifyLine(line, source), line, source)
	}
}

// classifyLine guesses a log level from the line text. Unmarked stderr
// lines count as warnings, unmarked stdout lines as info.
func classifyLine(line string, source logstore.Source) logstore.Level {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "ERROR") || strings.Contains(upper, "TRACEBACK") ||
		strings.Contains(upper, "CRITICAL"):
		return logstore.LevelError
	case strings.Contains(upper, "WARN"):
		return logstore.LevelWarning
	case strings.Contains(upper, "DEBUG"):
		return logstore.LevelDebug
	case source == logstore.SourceStderr:
		return logstore.LevelWarning
	default:
		return logstore.LevelInfo
	}
}

// WaitHealthy polls the readiness probe until the server responds, the
// attempt budget is exhausted, or the context is canceled.
func (p *Process) WaitHealthy(ctx context.Context) error {
	for attempt := 1; attempt <= p.cfg.HealthAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.client.Health(probeCtx)
		cancel()
		if err == nil {
			p.logger.Info().Int("attempt", attempt).Msg("voicebox-server healthy")
			return nil
		}
		if attempt%10 == 0 {
			p.logger.Debug().Int("attempt", attempt).Err(err).Msg("readiness probe failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.HealthInterval):
		}
	}
	return fmt.Errorf("server did not become healthy after %d attempts", p.cfg.HealthAttempts)
}

// Running reports whether the child process is alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Process) runningLocked() bool {
	if p.cmd == nil {
		return false
	}
	if p.cmd.ProcessState != nil {
		p.cmd = nil
		return false
	}
	return true
}

// Stop shuts the server down: graceful /shutdown first, then a kill after
// the grace period.
func (p *Process) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := p.client.Shutdown(shutdownCtx); err != nil {
		p.logger.Debug().Err(err).Msg("graceful shutdown request failed")
	}
	cancel()

	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			p.logger.Debug().Err(err).Msg("voicebox-server exited")
		} else {
			p.logger.Info().Msg("voicebox-server exited gracefully")
		}
	case <-time.After(p.cfg.ShutdownGrace):
		p.logger.Warn().Msg("grace period expired, killing voicebox-server")
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill voicebox-server: %w", err)
		}
		<-done
	}
	return nil
}

// resolveServerScript locates backend/server.py: walk up from the
// executable looking for it, falling back to the working directory.
func resolveServerScript() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for i := 0; i < 5; i++ {
			candidate := filepath.Join(dir, "backend", "server.py")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return filepath.Join("backend", "server.py")
}
