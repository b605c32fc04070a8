package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/docreel/docreel-go/timing"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_multilingual_v2"
)

// Client implements Synthesizer against an ElevenLabs-style
// text-to-speech API: POST /v1/text-to-speech/{voice}/with-timestamps
// returning base64 audio plus parallel character alignment arrays.
type Client struct {
	baseURL    string
	apiKey     string
	modelID    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModelID overrides the synthesis model.
func WithModelID(id string) Option {
	return func(c *Client) { c.modelID = id }
}

// WithHTTPClient supplies a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a speech client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		modelID:    defaultModelID,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesisRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

type synthesisResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   *struct {
		Characters []string  `json:"characters"`
		Starts     []float64 `json:"character_start_times_seconds"`
		Ends       []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

// Synthesize implements Synthesizer. The API treats English as the
// default, so "en" is sent as no language code at all.
func (c *Client) Synthesize(ctx context.Context, voiceID, text, language string) (Result, error) {
	reqBody := synthesisRequest{Text: text, ModelID: c.modelID}
	if language != "" && language != "en" {
		reqBody.LanguageCode = language
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("synthesis failed for voice %q: status %d: %s", voiceID, resp.StatusCode, truncate(body, 200))
	}

	var parsed synthesisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.AudioBase64)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	return Result{Audio: audio, Timings: alignmentTimings(parsed)}, nil
}

// alignmentTimings converts the parallel alignment arrays into CharTiming
// values. Absent or ragged alignment yields no timings.
func alignmentTimings(resp synthesisResponse) []timing.CharTiming {
	a := resp.Alignment
	if a == nil || len(a.Characters) == 0 {
		return nil
	}
	if len(a.Starts) != len(a.Characters) {
		return nil
	}

	chars := make([]timing.CharTiming, 0, len(a.Characters))
	for i, ch := range a.Characters {
		ct := timing.CharTiming{Character: ch, Start: a.Starts[i]}
		if i < len(a.Ends) {
			ct.End = a.Ends[i]
		} else {
			ct.End = ct.Start
		}
		chars = append(chars, ct)
	}
	return chars
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
