// Package pipeline builds the document-to-short-video workflow: ingestion,
// story studio, and production sub-graphs composed into one checkpointed
// run. State flows through a flat key namespace so parallel nodes update
// disjoint keys without conflicts.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/timing"
)

// State keys. Every node reads and writes through these constants; the
// flat namespace is the contract between sub-graphs.
const (
	// ingestion
	KeyRawText     = "raw_text"
	KeyLanguage    = "language"
	KeyPages       = "pages"
	KeySummary     = "summary"
	KeyKeyConcepts = "key_concepts"
	KeyTOC         = "toc"
	KeyQuizItems   = "quiz_items"

	// story studio
	KeyAudienceProfile = "audience_profile"
	KeyTrendsAnalysis  = "trends_analysis"
	KeySlangAnalysis   = "slang_analysis"
	KeyHookConcept     = "hook_concept"
	KeyMemeConcept     = "meme_concept"
	KeyScenes          = "scenes"
	KeyAssetPlan       = "asset_plan"

	// production
	KeyVoiceTiming    = "voice_timing"
	KeyVideoFilenames = "video_filenames"
	KeyVideoTimeline  = "video_timeline"
	KeyQCNotes        = "qc_notes"
	KeyExportMetadata = "export_metadata"
)

// ErrorKey returns the companion key a node uses to record a recoverable
// failure as data instead of failing the run.
func ErrorKey(key string) string { return key + "_error" }

// TOCEntry is one table-of-contents item extracted from the document.
type TOCEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// QuizItem is one comprehension question generated from the document.
type QuizItem struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// AudienceProfile captures who the video is for and how it should feel.
type AudienceProfile struct {
	Persona       string   `json:"persona"`
	SkillLevel    string   `json:"skill_level"`
	Tone          string   `json:"tone"`
	VisualStyle   string   `json:"visual_style"`
	Pacing        string   `json:"pacing"`
	TopMessages   []string `json:"top_messages"`
	CallsToAction []string `json:"calls_to_action"`
	Hashtags      []string `json:"hashtags"`
	VoiceTone     string   `json:"voice_tone"`
}

// Scene is one scripted scene of the video.
type Scene struct {
	SceneNumber    int    `json:"scene_number"`
	OnScreenAction string `json:"on_screen_action"`
	DialogueVO     string `json:"dialogue_vo"`
	OnScreenText   string `json:"on_screen_text"`
}

// SceneAssets lists the assets planned for one scene.
type SceneAssets struct {
	SceneName  string   `json:"scene_name"`
	VideoAsset []string `json:"video_asset"`
	BGM        []string `json:"bgm"`
	SFX        []string `json:"sfx"`
}

// VoiceTiming is the synthesized voice-over for one scene with its word
// timings. A failed scene carries Error and empty timing; downstream
// nodes skip it rather than aborting the run.
type VoiceTiming struct {
	SceneNumber int                 `json:"scene_number"`
	Text        string              `json:"text"`
	AudioFile   string              `json:"audio_file"`
	Duration    float64             `json:"duration"`
	Words       []timing.WordTiming `json:"words"`
	Error       string              `json:"error,omitempty"`
}

// TimelineScene is one entry of the edit timeline.
type TimelineScene struct {
	SceneNumber int      `json:"scene_number"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	AudioFile   string   `json:"audio_file,omitempty"`
	VideoFile   string   `json:"video_file,omitempty"`
	Captions    []string `json:"captions,omitempty"`
}

// Timeline is the assembled edit plan for the renderer.
type Timeline struct {
	TotalDuration float64         `json:"total_duration"`
	Scenes        []TimelineScene `json:"scenes"`
}

// ExportMetadata describes the delivered video.
type ExportMetadata struct {
	Filename    string   `json:"filename"`
	Duration    float64  `json:"duration"`
	Resolution  string   `json:"resolution"`
	Format      string   `json:"format"`
	Hashtags    []string `json:"hashtags"`
	Description string   `json:"description"`
}

// decodeKey extracts state[key] into out. Values stored as typed structs
// survive checkpoint round-trips as generic maps, so everything goes
// through a JSON hop.
func decodeKey(s graph.State, key string, out interface{}) error {
	v, ok := s[key]
	if !ok || v == nil {
		return fmt.Errorf("state key %q missing", key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state key %q not encodable: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("state key %q has unexpected shape: %w", key, err)
	}
	return nil
}

// hasKey reports whether key holds a non-nil value.
func hasKey(s graph.State, key string) bool {
	v, ok := s[key]
	return ok && v != nil
}
