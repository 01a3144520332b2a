package voicebox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsServerLogMessage carries a structured server log line.
type wsServerLogMessage struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// EventStream subscribes to the voicebox-server event websocket. The
// server pushes speech lifecycle events and structured log lines over it;
// the HTTP API stays command-only.
type EventStream struct {
	baseURL string
	logger  zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	onSpeechDone func()
	onServerLog  func(level, message, source string)
}

// NewEventStream creates an event stream client for the given server.
func NewEventStream(baseURL string, logger zerolog.Logger) *EventStream {
	return &EventStream{
		baseURL: baseURL,
		logger:  logger.With().Str("component", "voicebox-events").Logger(),
	}
}

// SetSpeechDoneCallback sets the callback for playback completion.
func (s *EventStream) SetSpeechDoneCallback(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeechDone = cb
}

// SetServerLogCallback sets the callback for server log lines.
func (s *EventStream) SetServerLogCallback(cb func(level, message, source string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onServerLog = cb
}

// Connect starts the connection loop. It returns immediately; the loop
// reconnects with backoff until the context is canceled.
func (s *EventStream) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.connectLoop(ctx)
}

// Disconnect stops the loop and closes any open connection.
func (s *EventStream) Disconnect() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected = false
	s.mu.Unlock()
}

// IsConnected reports whether the stream is currently attached.
func (s *EventStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *EventStream) connectLoop(ctx context.Context) {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.readSession(ctx)
		s.mu.Lock()
		s.connected = false
		s.conn = nil
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("event stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// readSession dials the event endpoint and reads messages until the
// connection drops.
func (s *EventStream) readSession(ctx context.Context) error {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info().Str("url", u.String()).Msg("event stream connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return ctx.Err()
		default:
		}

		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			conn.Close()
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(raw)
	}
}

func (s *EventStream) handleMessage(raw json.RawMessage) {
	var typeMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &typeMsg); err != nil {
		s.logger.Warn().Err(err).Msg("failed to parse event type")
		return
	}

	switch typeMsg.Type {
	case "speech-done":
		s.mu.RLock()
		cb := s.onSpeechDone
		s.mu.RUnlock()
		s.logger.Debug().Msg("speech-done event")
		if cb != nil {
			cb()
		}

	case "server-log":
		var msg wsServerLogMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("failed to parse server-log event")
			return
		}
		s.mu.RLock()
		cb := s.onServerLog
		s.mu.RUnlock()
		if cb != nil {
			cb(msg.Level, msg.Message, msg.Source)
		}

	default:
		s.logger.Debug().Str("type", typeMsg.Type).Msg("unknown event type")
	}
}
