// Package bedrock implements generation.Generator with the Amazon Bedrock Converse API.
package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"orderagent/generation"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.meta.llama3-1-8b-instruct-v1:0"

	defaultMaxTokens   = 1024
	defaultTemperature = 0.1
	defaultTopP        = 0.8
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewClient(brc bedrockRuntimeClient, opts Options) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{
		brc:  brc,
		opts: opts,
	}
}

func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(req.Messages))

	sys, msgs := buildConversation(req.Messages)
	if len(msgs) == 0 {
		return "", fmt.Errorf("conversation has no user message")
	}

	inference := &types.InferenceConfiguration{
		MaxTokens:   aws.Int32(c.opts.MaxTokens),
		Temperature: aws.Float32(c.opts.Temperature),
		TopP:        aws.Float32(c.opts.TopP),
	}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(req.Temperature))
	}
	if req.TopP > 0 {
		inference.TopP = aws.Float32(float32(req.TopP))
	}

	out, err := c.brc.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(c.opts.ModelID),
		System:          sys,
		Messages:        msgs,
		InferenceConfig: inference,
	})
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model", c.opts.ModelID)
		return "", err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; consider increasing MaxTokens")
		return "", fmt.Errorf("%w: model hit MaxTokens limit", generation.ErrRejected)

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return "", fmt.Errorf("%w: model response blocked by Bedrock safety filters", generation.ErrRejected)
	}

	text := textFromOutput(out)
	if strings.TrimSpace(text) == "" {
		return "", generation.ErrEmptyOutput
	}
	return text, nil
}

// buildConversation moves system messages into system blocks and shapes the rest the way
// Converse requires: the first message is from the user and roles alternate. Consecutive
// messages from the same role are joined.
func buildConversation(in []generation.Message) ([]types.SystemContentBlock, []types.Message) {
	var sys []types.SystemContentBlock
	var msgs []types.Message

	for _, m := range in {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}

		var role types.ConversationRole
		switch m.Role {
		case generation.RoleSystem:
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		case generation.RoleAssistant:
			role = types.ConversationRoleAssistant
		default:
			role = types.ConversationRoleUser
		}

		if len(msgs) == 0 && role == types.ConversationRoleAssistant {
			continue
		}

		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, &types.ContentBlockMemberText{Value: m.Content})
			continue
		}
		msgs = append(msgs, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	return sys, msgs
}

// textFromOutput returns the assistant text. If a block looks like a single JSON object the
// last such block wins; otherwise all blocks are joined with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s
		}
	}

	return strings.Join(texts, "\n")
}
