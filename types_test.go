package orderagent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/order"
)

func TestMemory_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Memory
	}{
		{
			name: "engine memory",
			in:   `{"agent":"order_taking_agent","step number":"3","order":[{"item":"Latte","quantity":2,"price":"RM26.50"}],"asked_recommendation_before":true}`,
			want: Memory{
				Agent:                     AgentTag,
				StepNumber:                "3",
				Order:                     []order.Line{{Item: "Latte", Quantity: 2, Price: "RM26.50"}},
				AskedRecommendationBefore: true,
			},
		},
		{
			name: "numeric step number",
			in:   `{"agent":"order_taking_agent","step number":2,"order":[]}`,
			want: Memory{Agent: AgentTag, StepNumber: "2", Order: []order.Line{}},
		},
		{
			name: "float price and string quantity",
			in:   `{"agent":"order_taking_agent","step number":"3","order":[{"item":"Latte","quantity":2,"price":29.5},{"item":"Croissant","quantity":"2","price":"RM26.50"}]}`,
			want: Memory{
				Agent:      AgentTag,
				StepNumber: "3",
				Order: []order.Line{
					{Item: "Latte", Quantity: 2, Price: "RM29.50"},
					{Item: "Croissant", Quantity: 2, Price: "RM26.50"},
				},
			},
		},
		{
			name: "bad lines do not drop good ones",
			in:   `{"agent":"order_taking_agent","order":["latte",{"quantity":2},{"item":"Latte","quantity":"lots"},{"item":"Cappuccino","quantity":1,"price":"RM14.50"}]}`,
			want: Memory{
				Agent: AgentTag,
				Order: []order.Line{
					{Item: "Latte", Quantity: 1, Price: ""},
					{Item: "Cappuccino", Quantity: 1, Price: "RM14.50"},
				},
			},
		},
		{
			name: "foreign order shape",
			in:   `{"agent":"details_agent","order":"two lattes"}`,
			want: Memory{Agent: "details_agent"},
		},
		{
			name: "guard memory",
			in:   `{"agent":"guard_agent","guard_decision":"allowed"}`,
			want: Memory{Agent: "guard_agent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Memory
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTurnResult_Turn(t *testing.T) {
	res := TurnResult{
		Role:       "assistant",
		StepNumber: "3",
		Order:      []order.Line{{Item: "Latte", Quantity: 1, Price: "RM13.25"}},
		Response:   "Anything else?",
		Memory: Memory{
			Agent:      AgentTag,
			StepNumber: "3",
			Order:      []order.Line{{Item: "Latte", Quantity: 1, Price: "RM13.25"}},
		},
	}

	turn := res.Turn()
	require.NotNil(t, turn.Memory)
	assert.Equal(t, "assistant", turn.Role)
	assert.Equal(t, "Anything else?", turn.Content)

	turn.Memory.Order[0].Quantity = 5
	assert.Equal(t, 1, res.Memory.Order[0].Quantity)

	data, err := json.Marshal(turn)
	require.NoError(t, err)
	var back Turn
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *turn.Memory, *back.Memory)
}
