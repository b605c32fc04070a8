package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSynthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/text-to-speech/voice-42/with-timestamps") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "key-123" {
			t.Errorf("api key header = %q", r.Header.Get("xi-api-key"))
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req["text"] != "hi there" {
			t.Errorf("text = %v", req["text"])
		}
		if req["language_code"] != "es" {
			t.Errorf("language_code = %v", req["language_code"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"audio_base64": base64.StdEncoding.EncodeToString(audio),
			"alignment": map[string]interface{}{
				"characters":                    []string{"h", "i"},
				"character_start_times_seconds": []float64{0, 0.1},
				"character_end_times_seconds":   []float64{0.1, 0.2},
			},
		})
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	result, err := client.Synthesize(context.Background(), "voice-42", "hi there", "es")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(result.Audio) != string(audio) {
		t.Errorf("audio = %q", result.Audio)
	}
	if len(result.Timings) != 2 {
		t.Fatalf("timings = %d, want 2", len(result.Timings))
	}
	if result.Timings[1].Character != "i" || result.Timings[1].End != 0.2 {
		t.Errorf("timings[1] = %+v", result.Timings[1])
	}
}

func TestClientSynthesizeEnglishOmitsLanguageCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, present := req["language_code"]; present {
			t.Errorf("language_code should be omitted for English, got %v", req["language_code"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"audio_base64": base64.StdEncoding.EncodeToString([]byte("a")),
		})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	if _, err := client.Synthesize(context.Background(), "v", "hello", "en"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
}

func TestClientSynthesizeMissingAlignmentIsDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"audio_base64": base64.StdEncoding.EncodeToString([]byte("audio")),
		})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	result, err := client.Synthesize(context.Background(), "v", "text", "en")
	if err != nil {
		t.Fatalf("missing alignment should not be an error: %v", err)
	}
	if len(result.Timings) != 0 {
		t.Errorf("timings = %v", result.Timings)
	}
	if len(result.Audio) == 0 {
		t.Error("audio missing")
	}
}

func TestClientDesignVoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key-123" {
			t.Errorf("api key header = %q", r.Header.Get("xi-api-key"))
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}

		switch r.URL.Path {
		case "/v1/text-to-voice/design":
			if req["voice_description"] != "a warm narrator" {
				t.Errorf("voice_description = %v", req["voice_description"])
			}
			if req["model_id"] != "eleven_multilingual_ttv_v2" {
				t.Errorf("model_id = %v", req["model_id"])
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"previews": []map[string]interface{}{
					{"generated_voice_id": "gen-1"},
					{"generated_voice_id": "gen-2"},
				},
			})
		case "/v1/text-to-voice":
			if req["generated_voice_id"] != "gen-1" {
				t.Errorf("generated_voice_id = %v", req["generated_voice_id"])
			}
			if req["voice_name"] != "narrator (en)" {
				t.Errorf("voice_name = %v", req["voice_name"])
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"voice_id": "voice-final"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	id, err := client.DesignVoice(context.Background(), "narrator (en)", "a warm narrator")
	if err != nil {
		t.Fatalf("DesignVoice failed: %v", err)
	}
	if id != "voice-final" {
		t.Errorf("voice id = %q", id)
	}
}

func TestClientDesignVoiceNoPreviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"previews": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	if _, err := client.DesignVoice(context.Background(), "n", "d"); err == nil {
		t.Fatal("expected error when no previews come back")
	}
}

func TestClientDesignVoiceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	_, err := client.DesignVoice(context.Background(), "n", "d")
	if err == nil {
		t.Fatal("expected error for 402")
	}
	if !strings.Contains(err.Error(), "402") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestClientSynthesizeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"voice not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	_, err := client.Synthesize(context.Background(), "missing", "text", "en")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
}
