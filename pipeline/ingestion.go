package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
)

// pageSize is the rough character budget per page when a document has no
// explicit page breaks.
const pageSize = 3000

// newIngestionGraph compiles the linear ingestion stage:
// document_to_pages -> combined_analysis -> quiz_generator.
func newIngestionGraph(client model.Client) (*graph.CompiledGraph, error) {
	toPages := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		raw := s.GetString(KeyRawText)
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("no document text under %q", KeyRawText)
		}

		delta := graph.State{KeyPages: splitPages(raw)}
		if s.GetString(KeyLanguage) == "" {
			delta[KeyLanguage] = "en"
		}
		return delta, nil
	})

	analysis := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var pages []string
		if err := decodeKey(s, KeyPages, &pages); err != nil {
			return nil, err
		}

		var out struct {
			Summary     string     `json:"summary"`
			KeyConcepts []string   `json:"key_concepts"`
			TOC         []TOCEntry `json:"toc"`
		}
		err := client.InvokeStructured(ctx,
			"You analyze documents for short-form educational video production.",
			"Summarize this document, list its key concepts, and build a table of contents.\n\n"+strings.Join(pages, "\n\n"),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"summary":      map[string]interface{}{"type": "string"},
					"key_concepts": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"toc": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"title": map[string]interface{}{"type": "string"},
								"page":  map[string]interface{}{"type": "integer"},
							},
						},
					},
				},
				"required": []string{"summary", "key_concepts"},
			}, &out)
		if err != nil {
			return nil, fmt.Errorf("combined analysis: %w", err)
		}

		return graph.State{
			KeySummary:     out.Summary,
			KeyKeyConcepts: out.KeyConcepts,
			KeyTOC:         out.TOC,
		}, nil
	})

	quiz := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var out struct {
			Items []QuizItem `json:"quiz_items"`
		}
		err := client.InvokeStructured(ctx,
			"You write comprehension checks for educational videos.",
			fmt.Sprintf("Write 3 multiple-choice questions about this material:\n\n%s\n\nKey concepts: %s",
				s.GetString(KeySummary), strings.Join(stringSlice(s, KeyKeyConcepts), ", ")),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"quiz_items": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"question": map[string]interface{}{"type": "string"},
								"options":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"answer":   map[string]interface{}{"type": "string"},
							},
						},
					},
				},
			}, &out)
		if err != nil {
			// the quiz is bonus material; a failed generation is data
			return graph.State{
				KeyQuizItems:           []QuizItem{},
				ErrorKey(KeyQuizItems): err.Error(),
			}, nil
		}
		return graph.State{KeyQuizItems: out.Items}, nil
	})

	retry := &graph.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    15 * time.Second,
		Retryable:   model.Retryable,
	}

	return graph.New("ingestion").
		AddNode("document_to_pages", toPages, graph.WithInputs(KeyRawText), graph.WithOutputs(KeyPages, KeyLanguage)).
		AddNode("combined_analysis", analysis, graph.WithOutputs(KeySummary, KeyKeyConcepts, KeyTOC), graph.WithRetry(retry)).
		AddNode("quiz_generator", quiz, graph.WithOutputs(KeyQuizItems, ErrorKey(KeyQuizItems)), graph.WithRetry(retry)).
		AddEdge(graph.Start, "document_to_pages").
		AddEdge("document_to_pages", "combined_analysis").
		AddEdge("combined_analysis", "quiz_generator").
		AddEdge("quiz_generator", graph.End).
		Compile()
}

// splitPages breaks raw text into pages: form feeds win when present,
// otherwise paragraphs are packed up to roughly pageSize characters.
func splitPages(raw string) []string {
	if strings.Contains(raw, "\f") {
		var pages []string
		for _, p := range strings.Split(raw, "\f") {
			if strings.TrimSpace(p) != "" {
				pages = append(pages, strings.TrimSpace(p))
			}
		}
		return pages
	}

	var pages []string
	var current strings.Builder
	for _, para := range strings.Split(raw, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para) > pageSize {
			pages = append(pages, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if strings.TrimSpace(current.String()) != "" {
		pages = append(pages, strings.TrimSpace(current.String()))
	}
	return pages
}

// stringSlice reads a []string state value, tolerating the []interface{}
// shape a checkpoint round-trip produces.
func stringSlice(s graph.State, key string) []string {
	var out []string
	if err := decodeKey(s, key, &out); err != nil {
		return nil
	}
	return out
}
