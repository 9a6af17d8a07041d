// Package openai implements the llm.Provider boundary on top of the official
// OpenAI SDK, using native chat-completion tool calling. It works against any
// OpenAI-compatible API via a custom base URL.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/navimate/navimate/pkg/llm"
	"github.com/navimate/navimate/pkg/types"
)

// defaultTemperature keeps decisions near-deterministic; the loop depends on
// the model picking the same action for the same page state.
const defaultTemperature = 0.1

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	client      openai.Client
	model       string
	temperature float64
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the completion model id.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; an empty baseURL keeps the SDK
// default endpoint.
func NewProvider(apiKey, baseURL string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (set OPENAI_API_KEY or pass it explicitly)")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	p := &Provider{
		client:      openai.NewClient(clientOpts...),
		model:       "gpt-4o",
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the model id in use.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends the transcript and tool schema to the model and returns its
// single response message. Tool choice is auto: the model decides between
// speaking and acting.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message, tools []llm.ToolDefinition) (*types.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    convertMessages(messages),
		Temperature: openai.Float(p.temperature),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion service returned no choices")
	}

	choice := resp.Choices[0].Message
	msg := &types.Message{
		Role:    types.RoleAssistant,
		Content: choice.Content,
	}
	for _, call := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return msg, nil
}

// convertMessages maps transcript messages onto the SDK's message params.
// Assistant messages that carried tool calls are replayed with those calls so
// the API can pair them with the tool-result messages that follow.
func convertMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case types.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func convertTools(tools []llm.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  openai.FunctionParameters(tool.Parameters),
		}))
	}
	return out
}
