// Package anthropic adapts Anthropic's Claude API to model.Client.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/docreel/docreel-go/graph/model"
)

const defaultModel = "claude-sonnet-4-20250514"

// Client implements model.Client over the official anthropic-sdk-go.
// Safe for concurrent use.
type Client struct {
	client    *anthropic.Client
	modelName string
}

// NewClient creates an Anthropic-backed client. An empty modelName selects
// the default Claude model.
func NewClient(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = defaultModel
	}
	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &sdk, modelName: modelName}
}

// Invoke implements model.Client.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, []model.Message{{Role: model.RoleUser, Content: user}})
}

// InvokeStructured implements model.Client.
func (c *Client) InvokeStructured(ctx context.Context, system, user string, schema map[string]interface{}, out interface{}) error {
	text, err := c.complete(ctx, model.StructuredSystem(system, schema),
		[]model.Message{{Role: model.RoleUser, Content: user}})
	if err != nil {
		return err
	}
	return model.DecodeStructured(text, out)
}

// InvokeWithTools implements model.Client.
func (c *Client) InvokeWithTools(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	system, rest := model.SplitSystem(messages)
	text, err := c.complete(ctx, model.ToolSystem(system, tools), rest)
	if err != nil {
		return model.ChatOut{}, err
	}
	return model.ParseToolReply(text), nil
}

// complete sends one completion request. Anthropic takes the system prompt
// out of band rather than as a message.
func (c *Client) complete(ctx context.Context, system string, messages []model.Message) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: 4096,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", model.ClassifyError("anthropic", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
