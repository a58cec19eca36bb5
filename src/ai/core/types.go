package core

import "context"

// Request is one completion call. JSONMode asks the backend to enforce
// a JSON object response using whatever convention it supports.
type Request struct {
	SystemPrompt string
	Prompt       string
	JSONMode     bool
	Temperature  float64
	MaxTokens    int
}

// Completion is the structured output of a completion call.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is a provider-agnostic interface over LLM backends with
// distinct auth, endpoint, and JSON-enforcement conventions.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}
