// Package generation defines the boundary to the chat-completion service that drafts replies.
package generation

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyOutput is returned by backends when the service answered without any text.
var ErrEmptyOutput = errors.New("generation returned no text")

// ErrRejected marks a failure that repeats for the same request, such as a refused or
// truncated answer. Retrying does not retry it.
var ErrRejected = errors.New("generation rejected")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. Zero values leave the backend's defaults in place.
type Request struct {
	Messages    []Message
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Generator turns a conversation into raw model text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
