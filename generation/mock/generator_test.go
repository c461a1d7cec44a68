package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/catalog"
	"orderagent/extract"
	"orderagent/generation"
	"orderagent/order"
	"orderagent/reply"
)

func newGenerator() *Generator {
	cat := catalog.Default()
	return NewGenerator(cat, extract.New(cat))
}

func userRequest(content string) generation.Request {
	return generation.Request{Messages: []generation.Message{
		{Role: generation.RoleSystem, Content: "prompt"},
		{Role: generation.RoleUser, Content: content},
	}}
}

func TestGenerator(t *testing.T) {
	prior := []order.Line{{Item: "Latte", Quantity: 1, Price: "RM14.75"}}

	tests := []struct {
		name      string
		content   string
		wantStep  string
		wantOrder any
		contains  string
	}{
		{
			name:     "items from a plain message",
			content:  "two cappuccinos and a croissant",
			wantStep: "3",
			wantOrder: []any{
				map[string]any{"item": "Cappuccino", "quantity": float64(2), "price": "RM29.00"},
				map[string]any{"item": "Croissant", "quantity": float64(1), "price": "RM13.25"},
			},
			contains: "2 x Cappuccino",
		},
		{
			name:     "merges into the prior order",
			content:  generation.PriorState{StepNumber: "3", Order: prior}.Enrich("another latte"),
			wantStep: "3",
			wantOrder: []any{
				map[string]any{"item": "Latte", "quantity": float64(2), "price": "RM29.50"},
			},
		},
		{
			name:     "finalizes when the customer is done",
			content:  generation.PriorState{StepNumber: "3", Order: prior}.Enrich("no, that's all"),
			wantStep: "4",
			wantOrder: []any{
				map[string]any{"item": "Latte", "quantity": float64(1), "price": "RM14.75"},
			},
			contains: "Total: RM14.75",
		},
		{
			name:      "nothing recognised",
			content:   "hello there",
			wantStep:  "1",
			wantOrder: []any{},
			contains:  "What would you like",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := newGenerator().Generate(context.Background(), userRequest(tt.content))
			require.NoError(t, err)

			r, err := reply.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStep, r.StepNumber)
			assert.Equal(t, tt.wantOrder, r.Order)
			assert.Contains(t, r.Response, tt.contains)
		})
	}
}

func TestGeneratorNoUserMessage(t *testing.T) {
	_, err := newGenerator().Generate(context.Background(), generation.Request{})
	assert.Error(t, err)
}

func TestGeneratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newGenerator().Generate(ctx, userRequest("a latte"))
	assert.ErrorIs(t, err, context.Canceled)
}
