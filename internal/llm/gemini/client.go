// Package gemini adapts the Google GenAI SDK to the llm.Completer contract.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/redeelle/rodrigo-flow-app/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Model() string { return c.model }

// Complete runs one GenerateContent call and returns the concatenated text parts.
func (c *Client) Complete(ctx context.Context, in llm.Request) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, toContents(in.Messages), generateConfig(in))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response content")
	}
	return text, nil
}

func generateConfig(in llm.Request) *genai.GenerateContentConfig {
	temp := float32(in.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if in.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(in.System, genai.RoleUser)
	}
	if in.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(in.MaxTokens)
	}
	return cfg
}

func toContents(messages []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		contents = append(contents, genai.NewContentFromText(m.Content, roleFor(m.Role)))
	}
	return contents
}

func roleFor(role string) genai.Role {
	if role == "assistant" || role == "model" {
		return genai.RoleModel
	}
	return genai.RoleUser
}
