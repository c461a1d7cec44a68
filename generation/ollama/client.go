// Package ollama implements generation.Generator against a local Ollama server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"orderagent"
	"orderagent/generation"
	"orderagent/reply"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient orderagent.HTTPClient
	options    options
	format     *jsonschema.Schema
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   orderagent.HTTPClient
	// Format constrains decoding to a JSON schema. Nil means reply.Schema().
	Format *jsonschema.Schema
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Format == nil {
		opts.Format = reply.Schema()
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		format:     opts.Format,
		options: options{
			Temperature:   0.1,
			TopP:          0.8,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Message    wireMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	// other metadata omitted but available
}

type wireRequest struct {
	Model    string             `json:"model"`
	Messages []wireMessage      `json:"messages"`
	Format   *jsonschema.Schema `json:"format,omitempty"`
	Stream   bool               `json:"stream"`
	Options  options            `json:"options,omitempty"`
}

// Generate sends the conversation to the Ollama API and returns the assistant's content verbatim.
func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(req.Messages))

	opts := c.options
	if req.Temperature > 0 {
		opts.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		opts.TopP = req.TopP
	}
	if req.MaxTokens > 0 {
		opts.NumPredict = req.MaxTokens
	}

	reqBody := wireRequest{
		Model:    c.model,
		Messages: buildMessages(req.Messages),
		Format:   c.format,
		Stream:   false,
		Options:  opts,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		if clientError(resp.StatusCode) {
			return "", fmt.Errorf("%w: %s: %s", generation.ErrRejected, resp.Status, string(body))
		}
		return "", fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body", string(body))
		return string(body), nil
	}
	if wr.DoneReason == "length" {
		slog.Warn("LLM_CLIENT: Model hit num_predict limit", "num_predict", opts.NumPredict)
	}
	if strings.TrimSpace(wr.Message.Content) == "" {
		return "", generation.ErrEmptyOutput
	}

	return wr.Message.Content, nil
}

// buildMessages converts the request into Ollama chat messages. Unknown roles are sent as user.
func buildMessages(msgs []generation.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case generation.RoleSystem, generation.RoleUser, generation.RoleAssistant:
			out = append(out, wireMessage{Role: m.Role, Content: m.Content})
		default:
			slog.Warn("ollama: unknown role, coercing to user", "role", m.Role)
			out = append(out, wireMessage{Role: generation.RoleUser, Content: m.Content})
		}
	}
	return out
}

// clientError reports a 4xx status that a retry cannot fix.
func clientError(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
