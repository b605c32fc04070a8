// Package speech synthesizes voice-over audio with per-character timing
// alignment, plus the voice-design cache that keeps designed narrator
// voices stable across runs.
package speech

import (
	"context"

	"github.com/docreel/docreel-go/timing"
)

// Result is one synthesized utterance. Timings may be empty when the
// provider returns audio without alignment; that is a valid degraded
// result, not an error — captions simply get no word timings.
type Result struct {
	Audio   []byte
	Timings []timing.CharTiming
}

// Synthesizer converts text to speech for a given voice. language is a
// BCP-47-ish code ("en", "es"); implementations may ignore it for
// English-only voices.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text, language string) (Result, error)
}

// Designer creates a narrator voice from a prose description of its
// characteristics and returns the permanent voice ID to synthesize with.
type Designer interface {
	DesignVoice(ctx context.Context, name, description string) (string, error)
}
