package generation

import "strings"

const (
	ContextWindow     = 128000
	MinResponseTokens = 512
	MaxResponseTokens = 8192
)

// EstimateTokens approximates the prompt size as 1.3 tokens per whitespace-separated word.
func EstimateTokens(msgs []Message) int {
	words := 0
	for _, m := range msgs {
		words += len(strings.Fields(m.Content))
	}
	return int(float64(words) * 1.3)
}

// ResponseBudget is the response token limit left by the prompt in a ContextWindow-sized model,
// clamped to [MinResponseTokens, MaxResponseTokens].
func ResponseBudget(msgs []Message) int {
	budget := ContextWindow - EstimateTokens(msgs)
	return min(max(budget, MinResponseTokens), MaxResponseTokens)
}
