// Package openai implements generation.Generator for OpenAI-compatible chat endpoints
// (OpenAI, Hugging Face router, vLLM, GitHub Models) through langchaingo.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"orderagent/generation"
)

const defaultModel = "meta-llama/Llama-3.1-8B-Instruct"

// contentGenerator is the part of llms.Model the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Client struct {
	model contentGenerator
	name  string
}

type ClientOpts struct {
	Token   string
	BaseURL string
	ModelID string
}

// NewClient connects to an OpenAI-compatible endpoint.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		opts.ModelID = defaultModel
	}

	lcOpts := []lcopenai.Option{
		lcopenai.WithToken(opts.Token),
		lcopenai.WithModel(opts.ModelID),
	}
	if opts.BaseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(opts.BaseURL))
	}

	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return newClient(llm, opts.ModelID), nil
}

func newClient(model contentGenerator, name string) *Client {
	return &Client{model: model, name: name}
}

func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(req.Messages), "model", c.name)

	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		var msgType llms.ChatMessageType
		switch m.Role {
		case generation.RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case generation.RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		messages = append(messages, llms.TextParts(msgType, m.Content))
	}

	opts := []llms.CallOption{llms.WithModel(c.name)}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", generation.ErrEmptyOutput
	}

	choice := resp.Choices[0]
	slog.Info("LLM_CLIENT: Generation succeeded", "stop_reason", choice.StopReason, "content_len", len(choice.Content))
	if strings.TrimSpace(choice.Content) == "" {
		return "", generation.ErrEmptyOutput
	}
	return choice.Content, nil
}
