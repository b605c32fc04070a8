package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient implements Client against the render service's HTTP surface:
// POST /render with the request JSON, a synchronous response carrying the
// artifact reference.
type HTTPClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAuthToken sends a bearer token with every submission.
func WithAuthToken(token string) HTTPOption {
	return func(c *HTTPClient) { c.authToken = token }
}

// WithHTTPClient supplies a custom HTTP client. Renders run for minutes;
// the default client carries no timeout and relies on ctx.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a render client for the service at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit implements Client.
func (c *HTTPClient) Submit(ctx context.Context, req Request) (ArtifactRef, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("failed to encode render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("failed to create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("render submission failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("failed to read render response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ArtifactRef{}, fmt.Errorf("render of %q failed: status %d: %s", req.Composition, resp.StatusCode, truncate(body, 200))
	}

	var ref ArtifactRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return ArtifactRef{}, fmt.Errorf("failed to decode render response: %w", err)
	}
	return ref, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
