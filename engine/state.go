package engine

import (
	"log/slog"

	"orderagent"
	"orderagent/generation"
	"orderagent/order"
)

// State is the conversation state carried from the engine's last turn.
type State struct {
	StepNumber                string
	Order                     []order.Line
	AskedRecommendationBefore bool
}

// DefaultState is the state of a conversation the engine has not answered yet.
func DefaultState() State {
	return State{StepNumber: "1", Order: []order.Line{}}
}

// RecoverState scans the last lookback turns, newest first, for the first assistant turn
// tagged with agent whose recorded order is non-empty. Without one the default state is used.
func RecoverState(history []orderagent.Turn, agent string, lookback int) State {
	stop := max(len(history)-lookback, 0)
	for i := len(history) - 1; i >= stop; i-- {
		t := history[i]
		if t.Role != generation.RoleAssistant || t.Memory == nil || t.Memory.Agent != agent {
			continue
		}
		if len(t.Memory.Order) == 0 {
			continue
		}

		st := State{
			StepNumber:                t.Memory.StepNumber,
			Order:                     order.Clone(t.Memory.Order),
			AskedRecommendationBefore: t.Memory.AskedRecommendationBefore,
		}
		if st.StepNumber == "" {
			st.StepNumber = "1"
		}
		slog.Debug("ENGINE: Found prior order state", "turn", i, "step", st.StepNumber, "lines", len(st.Order))
		return st
	}
	return DefaultState()
}

// BuildMessages assembles the generation request messages: the system prompt followed by the
// last lookback turns, with the prior state block prepended to the newest one.
func BuildMessages(systemPrompt string, history []orderagent.Turn, prior State, lookback int) []generation.Message {
	start := max(len(history)-lookback, 0)
	recent := history[start:]

	msgs := make([]generation.Message, 0, len(recent)+1)
	msgs = append(msgs, generation.Message{Role: generation.RoleSystem, Content: systemPrompt})
	for i, t := range recent {
		content := t.Content
		if i == len(recent)-1 {
			content = generation.PriorState{StepNumber: prior.StepNumber, Order: prior.Order}.Enrich(content)
		}
		msgs = append(msgs, generation.Message{Role: t.Role, Content: content})
	}
	return msgs
}
