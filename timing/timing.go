// Package timing reconstructs word-level caption timings from the raw
// per-character timestamps returned by a speech synthesis provider.
package timing

// flickerGap is the largest silence between two adjacent words that is
// bridged so on-screen captions don't blink off during natural pauses.
const flickerGap = 0.5

// CharTiming is a single character with its spoken interval in seconds.
//
// Providers return these as flat alignment streams. Start values are
// monotonically non-decreasing; End may equal Start for zero-length
// alignments.
type CharTiming struct {
	Character string  `json:"character"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// WordTiming is a caption-ready word with its visible interval in seconds.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// WordsFromCharacters groups a character-timestamp stream into word
// timestamps.
//
// Words are split on space characters. A word's start is the start of its
// first character. A word closed by a space ends at the space's End, not the
// last letter's End — the word stays visible through the pause that follows
// it. A trailing word with no following space ends at its last character's
// End. Consecutive spaces produce no empty words.
//
// After grouping, small inter-word gaps (0 < gap < 0.5s) are bridged by
// extending the earlier word to the start of the next one. Larger gaps are
// real pauses and are left alone.
//
// Empty input returns an empty, non-nil slice.
func WordsFromCharacters(chars []CharTiming) []WordTiming {
	words := make([]WordTiming, 0, len(chars)/4)

	var current string
	var wordStart, wordEnd float64

	for _, ct := range chars {
		if current == "" && ct.Character != "" && ct.Character != " " {
			wordStart = ct.Start
		}

		if ct.Character == " " {
			if current != "" {
				words = append(words, WordTiming{
					Word:  current,
					Start: wordStart,
					End:   ct.End,
				})
				current = ""
			}
			continue
		}

		current += ct.Character
		wordEnd = ct.End
	}

	if current != "" {
		words = append(words, WordTiming{Word: current, Start: wordStart, End: wordEnd})
	}

	bridgeGaps(words)
	return words
}

// bridgeGaps extends each word whose gap to the next word is positive but
// under flickerGap, so adjacent captions meet. Overlapping or widely spaced
// words are untouched.
func bridgeGaps(words []WordTiming) {
	for i := 0; i < len(words)-1; i++ {
		gap := words[i+1].Start - words[i].End
		if gap > 0 && gap < flickerGap {
			words[i].End = words[i+1].Start
		}
	}
}

// Duration returns the end time of the last character, which is the total
// spoken duration of the stream. An empty stream has duration 0 — the
// degraded case when a provider returns audio without alignment.
func Duration(chars []CharTiming) float64 {
	if len(chars) == 0 {
		return 0
	}
	return chars[len(chars)-1].End
}
