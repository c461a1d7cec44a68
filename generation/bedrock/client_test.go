package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/generation"
)

// mockBedrockClient implements bedrockRuntimeClient for testing
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	input    *bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = input
	return m.response, m.err
}

func textOutput(stop types.StopReason, texts ...string) *bedrockruntime.ConverseOutput {
	blocks := make([]types.ContentBlock, 0, len(texts))
	for _, s := range texts {
		blocks = append(blocks, &types.ContentBlockMemberText{Value: s})
	}
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{Role: types.ConversationRoleAssistant, Content: blocks},
		},
		Usage:   &types.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(20)},
		Metrics: &types.ConverseMetrics{LatencyMs: aws.Int64(100)},
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		expected Options
	}{
		{
			name:  "empty options uses defaults",
			input: Options{},
			expected: Options{
				ModelID:     defaultModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name:     "custom options preserved",
			input:    Options{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.7},
			expected: Options{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{}
			client := NewClient(mockClient, tt.input)

			assert.Equal(t, tt.expected, client.opts)
			assert.Equal(t, mockClient, client.brc)
		})
	}
}

func TestClient_Generate(t *testing.T) {
	userOnly := []generation.Message{{Role: generation.RoleUser, Content: "a latte"}}

	tests := []struct {
		name     string
		messages []generation.Message
		response *bedrockruntime.ConverseOutput
		err      error
		want     string
		wantErr  bool
		rejected bool
	}{
		{
			name:     "end turn text",
			messages: userOnly,
			response: textOutput(types.StopReasonEndTurn, `{"step number":"1"}`),
			want:     `{"step number":"1"}`,
		},
		{
			name:     "prefers the last JSON block",
			messages: userOnly,
			response: textOutput(types.StopReasonEndTurn, "Here you go:", `{"a":1}`, "thanks"),
			want:     `{"a":1}`,
		},
		{
			name:     "joins prose blocks",
			messages: userOnly,
			response: textOutput(types.StopReasonStopSequence, "one", "two"),
			want:     "one\ntwo",
		},
		{
			name:     "max tokens",
			messages: userOnly,
			response: textOutput(types.StopReasonMaxTokens, `{"step number":`),
			wantErr:  true,
			rejected: true,
		},
		{
			name:     "content filtered",
			messages: userOnly,
			response: textOutput(types.StopReasonContentFiltered),
			wantErr:  true,
			rejected: true,
		},
		{
			name:     "empty output",
			messages: userOnly,
			response: &bedrockruntime.ConverseOutput{StopReason: types.StopReasonEndTurn},
			wantErr:  true,
		},
		{
			name:     "api error",
			messages: userOnly,
			err:      errors.New("ThrottlingException"),
			wantErr:  true,
		},
		{
			name:     "no user message",
			messages: []generation.Message{{Role: generation.RoleSystem, Content: "prompt"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&mockBedrockClient{response: tt.response, err: tt.err}, Options{})

			got, err := c.Generate(context.Background(), generation.Request{Messages: tt.messages})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.rejected, errors.Is(err, generation.ErrRejected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_GenerateInput(t *testing.T) {
	mock := &mockBedrockClient{response: textOutput(types.StopReasonEndTurn, "{}")}
	c := NewClient(mock, Options{ModelID: "m"})

	_, err := c.Generate(context.Background(), generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "prompt"},
			{Role: generation.RoleAssistant, Content: "Welcome!"},
			{Role: generation.RoleUser, Content: "hi"},
			{Role: generation.RoleUser, Content: "a latte"},
			{Role: generation.RoleAssistant, Content: "ok"},
			{Role: generation.RoleUser, Content: "that's all"},
		},
		MaxTokens:   600,
		Temperature: 0.1,
	})
	require.NoError(t, err)

	in := mock.input
	require.NotNil(t, in)
	assert.Equal(t, "m", aws.ToString(in.ModelId))
	assert.Len(t, in.System, 1)
	assert.Equal(t, int32(600), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.Equal(t, float32(0.1), aws.ToFloat32(in.InferenceConfig.Temperature))

	require.Len(t, in.Messages, 3)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)
	assert.Len(t, in.Messages[0].Content, 2)
	assert.Equal(t, types.ConversationRoleAssistant, in.Messages[1].Role)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[2].Role)
}
