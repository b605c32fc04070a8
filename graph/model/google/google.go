// Package google adapts Google's Gemini API to model.Client.
package google

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/docreel/docreel-go/graph/model"
)

const defaultModel = "gemini-1.5-flash"

// Client implements model.Client over the official generative-ai-go SDK.
// Close releases the underlying gRPC connection.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a Gemini-backed client. An empty modelName selects the
// default model.
func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		modelName = defaultModel
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: sdk, modelName: modelName}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Invoke implements model.Client.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, []model.Message{{Role: model.RoleUser, Content: user}}, false)
}

// InvokeStructured implements model.Client, using Gemini's JSON response
// mode on top of the shared schema prompt.
func (c *Client) InvokeStructured(ctx context.Context, system, user string, schema map[string]interface{}, out interface{}) error {
	text, err := c.complete(ctx, model.StructuredSystem(system, schema),
		[]model.Message{{Role: model.RoleUser, Content: user}}, true)
	if err != nil {
		return err
	}
	return model.DecodeStructured(text, out)
}

// InvokeWithTools implements model.Client.
func (c *Client) InvokeWithTools(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	system, rest := model.SplitSystem(messages)
	text, err := c.complete(ctx, model.ToolSystem(system, tools), rest, false)
	if err != nil {
		return model.ChatOut{}, err
	}
	return model.ParseToolReply(text), nil
}

func (c *Client) complete(ctx context.Context, system string, messages []model.Message, jsonMode bool) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	gm := c.client.GenerativeModel(c.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if jsonMode {
		gm.ResponseMIMEType = "application/json"
	}

	// Gemini takes one prompt per call; earlier turns fold into the text.
	var prompt string
	for _, msg := range messages {
		if prompt != "" {
			prompt += "\n\n"
		}
		if msg.Role == model.RoleAssistant {
			prompt += "Previous reply:\n" + msg.Content
			continue
		}
		prompt += msg.Content
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", model.ClassifyError("google", err)
	}

	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		break
	}
	return text, nil
}
