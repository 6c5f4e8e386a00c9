// ABOUTME: Chat completion client for OpenAI-compatible endpoints
// ABOUTME: Thin wrapper mapping chat history to completion requests
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Role distinguishes who said what in the chat history
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// Message is one turn of the conversation
type Message struct {
	Role    Role
	Content string
}

// Config holds chat client configuration
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
}

// Client talks to an OpenAI-compatible chat completion endpoint
type Client struct {
	client openai.Client
	model  string
	system string
}

// New creates a chat client
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		system: cfg.SystemPrompt,
	}
}

// Complete sends the whole history and returns the assistant's reply
func (c *Client) Complete(ctx context.Context, history []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if c.system != "" {
		messages = append(messages, openai.SystemMessage(c.system))
	}
	for _, m := range history {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
