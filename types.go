package orderagent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"orderagent/order"
)

// AgentTag identifies turns authored by this engine in shared conversation history.
const AgentTag = "order_taking_agent"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// Responder produces the assistant's next turn for a conversation.
type Responder interface {
	Respond(ctx context.Context, history []Turn) (TurnResult, error)
}

// Turn is one entry of caller-owned conversation history.
type Turn struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Memory  *Memory `json:"memory,omitempty"`
}

// Memory is the conversation state an agent attaches to its turns.
type Memory struct {
	Agent                     string       `json:"agent"`
	StepNumber                string       `json:"step number"`
	Order                     []order.Line `json:"order"`
	AskedRecommendationBefore bool         `json:"asked_recommendation_before"`
}

// UnmarshalJSON accepts memory written by other agents sharing the history. A numeric step
// number is converted to text. Order lines are read one by one: a line without an item is
// discarded, a bad quantity becomes 1 and a numeric price is formatted as currency.
func (m *Memory) UnmarshalJSON(data []byte) error {
	var raw struct {
		Agent                     string `json:"agent"`
		StepNumber                any    `json:"step number"`
		Order                     any    `json:"order"`
		AskedRecommendationBefore bool   `json:"asked_recommendation_before"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Memory{Agent: raw.Agent, AskedRecommendationBefore: raw.AskedRecommendationBefore}
	switch v := raw.StepNumber.(type) {
	case string:
		m.StepNumber = v
	case float64:
		m.StepNumber = strconv.FormatFloat(v, 'f', -1, 64)
	}

	if raw.Order == nil {
		return nil
	}
	cands, ok := order.Candidates(raw.Order)
	if !ok {
		slog.Warn("MEMORY: Discarding order that is not a list", "agent", raw.Agent)
		return nil
	}
	lines := make([]order.Line, 0, len(cands))
	for i, cand := range cands {
		line, err := cand.Line()
		if errors.Is(err, order.ErrInvalidLine) {
			slog.Warn("MEMORY: Discarding order line", "agent", raw.Agent, "index", i, "error", err)
			continue
		}
		if err != nil {
			slog.Warn("MEMORY: Quantity defaulted to 1", "agent", raw.Agent, "index", i, "error", err)
		}
		lines = append(lines, line)
	}
	m.Order = lines
	return nil
}

// TurnResult is the assistant turn returned to the caller. It carries only the allow-listed
// fields.
type TurnResult struct {
	Role           string       `json:"role"`
	ChainOfThought string       `json:"chain of thought,omitempty"`
	StepNumber     string       `json:"step number"`
	Order          []order.Line `json:"order"`
	Response       string       `json:"response"`
	Memory         Memory       `json:"memory"`
}

// Turn converts the result into the history entry the caller appends.
func (r TurnResult) Turn() Turn {
	mem := r.Memory
	mem.Order = order.Clone(r.Memory.Order)
	return Turn{Role: r.Role, Content: r.Response, Memory: &mem}
}
