// Package openai implements llm.Provider on the OpenAI Chat Completions API.
//
// One client covers every OpenAI-compatible endpoint through BaseURL:
// OpenAI itself, DashScope (Qwen), DeepSeek, Ollama and similar gateways
// all speak this wire format.
package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vectormem/vectormem-go/pkg/llm"
)

// Client is an OpenAI chat-completion client.
type Client struct {
	client *openai.Client
	model  string
}

// Config is the configuration for the OpenAI chat client.
type Config struct {
	// APIKey is the API key for the endpoint.
	APIKey string

	// Model is the default model name, e.g. "gpt-4o-mini".
	Model string

	// BaseURL overrides the API base URL (optional).
	BaseURL string
}

// NewClient creates a new OpenAI chat-completion client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// GenerateWithMessages generates text using message history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	model := options.Model
	if model == "" {
		model = c.model
	}

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm generation failed: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close closes the client. The underlying SDK holds no connections that
// need explicit closing; the method exists for interface compatibility.
func (c *Client) Close() error {
	return nil
}
