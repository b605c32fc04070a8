package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// designModelID is the text-to-voice model used for voice design.
const designModelID = "eleven_multilingual_ttv_v2"

type voiceDesignRequest struct {
	VoiceDescription string  `json:"voice_description"`
	ModelID          string  `json:"model_id"`
	AutoGenerateText bool    `json:"auto_generate_text"`
	Loudness         float64 `json:"loudness"`
	Quality          float64 `json:"quality"`
	GuidanceScale    float64 `json:"guidance_scale"`
}

type voiceDesignResponse struct {
	Previews []struct {
		GeneratedVoiceID string `json:"generated_voice_id"`
	} `json:"previews"`
}

type voiceCreateRequest struct {
	VoiceName        string `json:"voice_name"`
	VoiceDescription string `json:"voice_description"`
	GeneratedVoiceID string `json:"generated_voice_id"`
}

type voiceCreateResponse struct {
	VoiceID string `json:"voice_id"`
}

// DesignVoice implements Designer against the ElevenLabs-style voice
// design API. It is a two-step flow: POST /v1/text-to-voice/design
// generates candidate previews from the description, then
// POST /v1/text-to-voice promotes the first preview into a permanent
// voice under the given name.
func (c *Client) DesignVoice(ctx context.Context, name, description string) (string, error) {
	design := voiceDesignRequest{
		VoiceDescription: description,
		ModelID:          designModelID,
		AutoGenerateText: true,
		Quality:          0.6,
		GuidanceScale:    2.5,
	}
	var previews voiceDesignResponse
	if err := c.postJSON(ctx, "/v1/text-to-voice/design", design, &previews); err != nil {
		return "", fmt.Errorf("voice design failed: %w", err)
	}
	if len(previews.Previews) == 0 {
		return "", fmt.Errorf("voice design returned no previews")
	}

	create := voiceCreateRequest{
		VoiceName:        name,
		VoiceDescription: description,
		GeneratedVoiceID: previews.Previews[0].GeneratedVoiceID,
	}
	var created voiceCreateResponse
	if err := c.postJSON(ctx, "/v1/text-to-voice", create, &created); err != nil {
		return "", fmt.Errorf("voice creation failed: %w", err)
	}
	if created.VoiceID == "" {
		return "", fmt.Errorf("voice creation returned no voice ID")
	}
	return created.VoiceID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
