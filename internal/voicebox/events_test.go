package voicebox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEventStream_DispatchesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/events", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]any{
			"type":    "server-log",
			"level":   "warning",
			"message": "voice cache miss",
			"source":  "stdout",
		})
		conn.WriteJSON(map[string]any{"type": "speech-done"})

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	stream := NewEventStream(srv.URL, zerolog.Nop())

	var mu sync.Mutex
	var doneCount int
	var logs []string
	stream.SetSpeechDoneCallback(func() {
		mu.Lock()
		doneCount++
		mu.Unlock()
	})
	stream.SetServerLogCallback(func(level, message, source string) {
		mu.Lock()
		logs = append(logs, strings.Join([]string{level, message, source}, "|"))
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Connect(ctx)
	defer stream.Disconnect()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return doneCount == 1 && len(logs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "warning|voice cache miss|stdout", logs[0])
	mu.Unlock()

	assert.Eventually(t, stream.IsConnected, 2*time.Second, 10*time.Millisecond)
}

func TestEventStream_ReconnectsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var sessions int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		sessions++
		first := sessions == 1
		mu.Unlock()

		if first {
			// Drop the first connection immediately to force a reconnect.
			conn.Close()
			return
		}
		conn.WriteJSON(map[string]any{"type": "speech-done"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}))
	defer srv.Close()

	stream := NewEventStream(srv.URL, zerolog.Nop())

	var doneMu sync.Mutex
	var done bool
	stream.SetSpeechDoneCallback(func() {
		doneMu.Lock()
		done = true
		doneMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Connect(ctx)
	defer stream.Disconnect()

	assert.Eventually(t, func() bool {
		doneMu.Lock()
		defer doneMu.Unlock()
		return done
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.GreaterOrEqual(t, sessions, 2)
	mu.Unlock()
}
