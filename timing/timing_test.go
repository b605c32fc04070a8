package timing

import (
	"math"
	"testing"
)

// charsFor builds a character stream for text with uniform per-character
// duration, starting at base.
func charsFor(text string, base, step float64) []CharTiming {
	chars := make([]CharTiming, 0, len(text))
	t := base
	for _, r := range text {
		chars = append(chars, CharTiming{
			Character: string(r),
			Start:     t,
			End:       t + step,
		})
		t += step
	}
	return chars
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWordsFromCharacters_Empty(t *testing.T) {
	words := WordsFromCharacters(nil)
	if words == nil {
		t.Fatal("expected non-nil slice for nil input")
	}
	if len(words) != 0 {
		t.Fatalf("expected empty output, got %d words", len(words))
	}

	words = WordsFromCharacters([]CharTiming{})
	if len(words) != 0 {
		t.Fatalf("expected empty output for empty input, got %d words", len(words))
	}
}

func TestWordsFromCharacters_TwoWords(t *testing.T) {
	// "hi there" at 0.1s per character. The space after "hi" spans
	// [0.2, 0.3); "hi" must end at the space's end, not 'i's end.
	chars := charsFor("hi there", 0, 0.1)

	words := WordsFromCharacters(chars)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d: %+v", len(words), words)
	}

	if words[0].Word != "hi" || words[1].Word != "there" {
		t.Errorf("expected [hi there], got [%s %s]", words[0].Word, words[1].Word)
	}
	if !approx(words[0].Start, 0) {
		t.Errorf("hi.start = %v, want 0", words[0].Start)
	}

	spaceEnd := chars[2].End
	if !approx(words[0].End, spaceEnd) {
		t.Errorf("hi.end = %v, want space end %v", words[0].End, spaceEnd)
	}

	if !approx(words[1].Start, chars[3].Start) {
		t.Errorf("there.start = %v, want %v", words[1].Start, chars[3].Start)
	}
	last := chars[len(chars)-1]
	if !approx(words[1].End, last.End) {
		t.Errorf("there.end = %v, want last char end %v", words[1].End, last.End)
	}
}

func TestWordsFromCharacters_TrailingWordFlushed(t *testing.T) {
	words := WordsFromCharacters(charsFor("go", 1.0, 0.2))
	if len(words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(words))
	}
	if words[0].Word != "go" {
		t.Errorf("word = %q, want %q", words[0].Word, "go")
	}
	if !approx(words[0].Start, 1.0) || !approx(words[0].End, 1.4) {
		t.Errorf("interval = [%v,%v], want [1.0,1.4]", words[0].Start, words[0].End)
	}
}

func TestWordsFromCharacters_ConsecutiveSpaces(t *testing.T) {
	words := WordsFromCharacters(charsFor("a  b", 0, 0.1))
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d: %+v", len(words), words)
	}
	for _, w := range words {
		if w.Word == "" {
			t.Error("consecutive spaces produced an empty word")
		}
	}
}

func TestWordsFromCharacters_LeadingSpace(t *testing.T) {
	words := WordsFromCharacters(charsFor(" hey", 0, 0.1))
	if len(words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(words))
	}
	if !approx(words[0].Start, 0.1) {
		t.Errorf("start = %v, want 0.1 (first letter, not leading space)", words[0].Start)
	}
}

func TestBridgeGaps(t *testing.T) {
	tests := []struct {
		name    string
		gap     float64
		bridged bool
	}{
		{"small gap bridged", 0.2, true},
		{"large gap untouched", 0.8, false},
		{"exact threshold untouched", 0.5, false},
		{"zero gap untouched", 0, false},
		{"overlap untouched", -0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := WordTiming{Word: "one", Start: 0, End: 1.0}
			second := WordTiming{Word: "two", Start: 1.0 + tt.gap, End: 2.0 + tt.gap}
			words := []WordTiming{first, second}

			bridgeGaps(words)

			wantEnd := first.End
			if tt.bridged {
				wantEnd = second.Start
			}
			if !approx(words[0].End, wantEnd) {
				t.Errorf("first.end = %v, want %v", words[0].End, wantEnd)
			}
			if !approx(words[1].Start, second.Start) || !approx(words[1].End, second.End) {
				t.Errorf("second word modified: %+v", words[1])
			}
		})
	}
}

func TestBridgeGaps_ViaWordsFromCharacters(t *testing.T) {
	// Two words separated by a 0.2s silence after the space: "hi" closes at
	// the space end (0.3), "yo" starts at 0.5. The bridge raises hi.end to
	// 0.5.
	chars := []CharTiming{
		{Character: "h", Start: 0.0, End: 0.1},
		{Character: "i", Start: 0.1, End: 0.2},
		{Character: " ", Start: 0.2, End: 0.3},
		{Character: "y", Start: 0.5, End: 0.6},
		{Character: "o", Start: 0.6, End: 0.7},
	}

	words := WordsFromCharacters(chars)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if !approx(words[0].End, words[1].Start) {
		t.Errorf("hi.end = %v, want %v (bridged to yo.start)", words[0].End, words[1].Start)
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(nil); d != 0 {
		t.Errorf("Duration(nil) = %v, want 0", d)
	}
	chars := charsFor("ok", 0, 0.25)
	if d := Duration(chars); !approx(d, 0.5) {
		t.Errorf("Duration = %v, want 0.5", d)
	}
}
