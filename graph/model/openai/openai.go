// Package openai adapts OpenAI's chat completions API to model.Client.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/docreel/docreel-go/graph/model"
)

const defaultModel = "gpt-4o"

// Client implements model.Client over the official openai-go SDK.
// Safe for concurrent use.
type Client struct {
	client    *openai.Client
	modelName string
}

// NewClient creates an OpenAI-backed client. An empty modelName selects
// the default model.
func NewClient(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = defaultModel
	}
	sdk := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &sdk, modelName: modelName}
}

// Invoke implements model.Client.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, []model.Message{{Role: model.RoleUser, Content: user}}, false)
}

// InvokeStructured implements model.Client, using the API's native JSON
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

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.modelName),
	}
	if system != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(system))
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: openai.Ptr(shared.NewResponseFormatJSONObjectParam()),
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", model.ClassifyError("openai", err)
	}
	if len(completion.Choices) == 0 {
		return "", model.ClassifyError("openai", errors.New("empty completion"))
	}
	return completion.Choices[0].Message.Content, nil
}
