package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/generation"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	request  *http.Request
	body     []byte
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.request = req
	if req.Body != nil {
		m.body, _ = io.ReadAll(req.Body)
	}
	return m.response, m.err
}

func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name         string
		opts         ClientOpts
		wantEndpoint string
		wantErr      bool
	}{
		{
			name:         "valid client creation",
			opts:         ClientOpts{BaseEndpoint: "http://localhost:11434", ModelID: "llama3.1:8b", HTTPClient: &mockHTTPClient{}},
			wantEndpoint: "http://localhost:11434/api/chat",
		},
		{
			name:         "trailing slash",
			opts:         ClientOpts{BaseEndpoint: "http://ollama:11434/", ModelID: "llama3.1:8b"},
			wantEndpoint: "http://ollama:11434/api/chat",
		},
		{
			name:    "missing model",
			opts:    ClientOpts{BaseEndpoint: "http://localhost:11434"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, c.endpoint)
			assert.NotNil(t, c.httpClient)
			assert.NotNil(t, c.format)
			assert.Equal(t, 0.1, c.options.Temperature)
		})
	}
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name     string
		response *http.Response
		err      error
		want     string
		wantErr  error
		errText  string
	}{
		{
			name:     "returns content",
			response: createMockResponse(http.StatusOK, `{"message":{"role":"assistant","content":"{\"step number\":\"1\"}"},"done":true}`),
			want:     `{"step number":"1"}`,
		},
		{
			name:     "non-200 status",
			response: createMockResponse(http.StatusInternalServerError, `model not loaded`),
			errText:  "model not loaded",
		},
		{
			name:     "unknown model is rejected",
			response: createMockResponse(http.StatusNotFound, `model "llama3.1:8b" not found`),
			wantErr:  generation.ErrRejected,
		},
		{
			name:     "rate limited",
			response: createMockResponse(http.StatusTooManyRequests, `slow down`),
			errText:  "slow down",
		},
		{
			name:     "undecodable body is returned raw",
			response: createMockResponse(http.StatusOK, `not json`),
			want:     "not json",
		},
		{
			name:     "empty content",
			response: createMockResponse(http.StatusOK, `{"message":{"role":"assistant","content":"  "},"done":true}`),
			wantErr:  generation.ErrEmptyOutput,
		},
		{
			name:    "transport error",
			err:     errors.New("connection refused"),
			errText: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{response: tt.response, err: tt.err}
			c, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434", ModelID: "llama3.1:8b", HTTPClient: mock})
			require.NoError(t, err)

			got, err := c.Generate(context.Background(), generation.Request{
				Messages: []generation.Message{{Role: generation.RoleUser, Content: "hi"}},
			})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
				assert.NotErrorIs(t, err, generation.ErrRejected)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClient_GenerateRequestBody(t *testing.T) {
	mock := &mockHTTPClient{response: createMockResponse(http.StatusOK, `{"message":{"role":"assistant","content":"ok"}}`)}
	c, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434", ModelID: "llama3.1:8b", HTTPClient: mock})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "be brief"},
			{Role: generation.RoleUser, Content: "a latte"},
			{Role: "tool", Content: "odd"},
		},
		Temperature: 0.3,
		MaxTokens:   700,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, mock.request.Method)
	assert.Equal(t, "application/json", mock.request.Header.Get("Content-Type"))

	var sent struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Format  map[string]any `json:"format"`
		Options map[string]any `json:"options"`
	}
	require.NoError(t, json.Unmarshal(mock.body, &sent))

	assert.Equal(t, "llama3.1:8b", sent.Model)
	assert.False(t, sent.Stream)
	require.Len(t, sent.Messages, 3)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Equal(t, "user", sent.Messages[2].Role)
	assert.Equal(t, "object", sent.Format["type"])
	assert.Equal(t, 0.3, sent.Options["temperature"])
	assert.Equal(t, 0.8, sent.Options["top_p"])
	assert.Equal(t, float64(700), sent.Options["num_predict"])
}
