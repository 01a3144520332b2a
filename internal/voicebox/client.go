// Package voicebox manages the external voicebox-server: process lifecycle,
// the HTTP command API, and the websocket event stream.
package voicebox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientConfig configures the voicebox HTTP client.
type ClientConfig struct {
	BaseURL string        // e.g., "http://127.0.0.1:17493"
	Timeout time.Duration // HTTP request timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:17493",
		Timeout: 30 * time.Second,
	}
}

// SpeakRequest is the synthesis request sent to the server.
type SpeakRequest struct {
	Text   string  `json:"text"`
	Engine string  `json:"engine,omitempty"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate,omitempty"`   // 0.5 - 2.0
	Pitch  float64 `json:"pitch,omitempty"`  // 0.5 - 2.0
	Volume float64 `json:"volume,omitempty"` // 0.0 - 1.0
}

// Voice describes a voice offered by an engine.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// Client talks to the voicebox-server command API.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a voicebox client.
func NewClient(cfg *ClientConfig, logger zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "voicebox-client").Logger(),
	}
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Speak submits a synthesis request.
func (c *Client) Speak(ctx context.Context, req *SpeakRequest) error {
	return c.do(ctx, http.MethodPost, "/speak", req, nil)
}

// Stop halts synthesis and playback.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/pause", nil, nil)
}

// Resume resumes paused playback.
func (c *Client) Resume(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/resume", nil, nil)
}

// Engines lists the engines the server can synthesize with.
func (c *Client) Engines(ctx context.Context) ([]string, error) {
	var out struct {
		Engines []string `json:"engines"`
	}
	if err := c.do(ctx, http.MethodGet, "/engines", nil, &out); err != nil {
		return nil, err
	}
	return out.Engines, nil
}

// Voices lists the voices available for an engine.
func (c *Client) Voices(ctx context.Context, engine string) ([]Voice, error) {
	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := c.do(ctx, http.MethodGet, "/voices?engine="+engine, nil, &out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

// Shutdown asks the server to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/shutdown", nil, nil)
}

// do performs a JSON request against the server. A nil out skips decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voicebox request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("voicebox %s %s: %d - %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
