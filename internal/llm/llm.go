// Package llm defines the provider-neutral chat completion contract used by
// the classifier. Each provider lives in its own subpackage.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single non-streaming completion request.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer returns the text of one completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}
