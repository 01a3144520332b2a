package voicebox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, zerolog.Nop())
}

func TestClient_SpeakSendsRequestBody(t *testing.T) {
	var got SpeakRequest
	var requestID string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/speak", r.URL.Path)
		requestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.Speak(context.Background(), &SpeakRequest{
		Text:   "hello there",
		Engine: "piper",
		Rate:   1.25,
	})
	assert.NoError(t, err)
	assert.Equal(t, "hello there", got.Text)
	assert.Equal(t, "piper", got.Engine)
	assert.Equal(t, 1.25, got.Rate)
	assert.NotEmpty(t, requestID)
}

func TestClient_EnginesDecodesList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/engines", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"engines": []string{"system", "piper", "cloud"}})
	}))

	engines, err := client.Engines(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"system", "piper", "cloud"}, engines)
}

func TestClient_VoicesPassesEngineQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voices", r.URL.Path)
		assert.Equal(t, "piper", r.URL.Query().Get("engine"))
		json.NewEncoder(w).Encode(map[string]any{"voices": []Voice{
			{ID: "en_US-amy", Name: "Amy", Language: "en-US"},
		}})
	}))

	voices, err := client.Voices(context.Background(), "piper")
	assert.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "en_US-amy", voices[0].ID)
}

func TestClient_ServerErrorIncludesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine unavailable", http.StatusInternalServerError)
	}))

	err := client.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "engine unavailable")
}

func TestClient_HealthAgainstDeadServer(t *testing.T) {
	client := NewClient(&ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, zerolog.Nop())

	err := client.Health(context.Background())
	assert.Error(t, err)
}
