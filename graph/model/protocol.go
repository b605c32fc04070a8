package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The prompt protocol below is how every adapter carries structured output
// and tool use over plain completion. Providers differ in native tool
// support; routing everything through one JSON convention keeps pipeline
// behavior identical regardless of which provider the config selects.

// StructuredSystem extends a system prompt with instructions to reply with
// a single JSON document matching schema.
func StructuredSystem(system string, schema map[string]interface{}) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond ONLY with a JSON document matching this JSON Schema. ")
	sb.WriteString("No markdown, no explanation, just the JSON.\n\n")
	if schema != nil {
		if b, err := json.Marshal(schema); err == nil {
			sb.Write(b)
		}
	}
	return sb.String()
}

// DecodeStructured parses a model reply as JSON into out, tolerating
// markdown code fences and prose surrounding the document.
func DecodeStructured(raw string, out interface{}) error {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	// fall back to the outermost JSON object or array embedded in prose
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return fmt.Errorf("no JSON document found in model reply")
	}
	end := strings.LastIndexAny(text, "}]")
	if end <= start {
		return fmt.Errorf("no JSON document found in model reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("failed to decode model reply as JSON: %w", err)
	}
	return nil
}

// ToolSystem extends a system prompt with the tool roster and the reply
// convention ParseToolReply understands.
func ToolSystem(system string, tools []ToolSpec) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	sb.WriteString("You can call the following tools:\n\n")
	for _, t := range tools {
		sb.WriteString("- ")
		sb.WriteString(t.Name)
		sb.WriteString(": ")
		sb.WriteString(t.Description)
		if t.Schema != nil {
			if b, err := json.Marshal(t.Schema); err == nil {
				sb.WriteString("\n  input schema: ")
				sb.Write(b)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nTo call tools, respond ONLY with a JSON object of the form\n")
	sb.WriteString(`{"tool_calls":[{"name":"<tool>","input":{...}}]}`)
	sb.WriteString("\nTo answer directly, respond with plain text and no JSON object.")
	return sb.String()
}

// ParseToolReply classifies a model reply as tool calls or text.
func ParseToolReply(raw string) ChatOut {
	var reply struct {
		ToolCalls []struct {
			Name  string                 `json:"name"`
			Input map[string]interface{} `json:"input"`
		} `json:"tool_calls"`
	}
	if err := DecodeStructured(raw, &reply); err == nil && len(reply.ToolCalls) > 0 {
		out := ChatOut{}
		for _, tc := range reply.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Name, Input: tc.Input})
		}
		return out
	}
	return ChatOut{Text: raw}
}

// SplitSystem separates system messages (concatenated) from the rest of
// the conversation. Several providers take the system prompt out of band.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
