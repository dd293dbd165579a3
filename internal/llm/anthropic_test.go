package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/service"
)

func TestNewAnthropicClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				APIKey: "test-key",
			},
			wantErr: false,
		},
		{
			name: "missing API key",
			config: Config{
				APIKey: "",
			},
			wantErr: true,
		},
		{
			name: "custom model and settings",
			config: Config{
				APIKey:      "test-key",
				Model:       "claude-3-opus-20240229",
				Temperature: 0.5,
				MaxTokens:   200,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newAnthropicClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			ac, ok := client.(*anthropicClient)
			require.True(t, ok)
			assert.Equal(t, "https://api.anthropic.com", ac.baseURL)
			if tt.config.Model == "" {
				assert.Equal(t, "claude-3-5-sonnet-20241022", ac.model)
			} else {
				assert.Equal(t, tt.config.Model, ac.model)
			}
			if tt.config.MaxTokens == 0 {
				assert.Equal(t, 1024, ac.maxTokens)
			}
		})
	}
}

// newTestClient builds a client pointed at the given test server.
func newTestClient(server *httptest.Server) *anthropicClient {
	return &anthropicClient{
		baseURL:     server.URL,
		apiKey:      "test-key",
		model:       "claude-3-5-sonnet-20241022",
		temperature: 0.3,
		maxTokens:   512,
		limiter:     newRateLimiter(600),
		httpClient:  server.Client(),
	}
}

func textResponse(text string) string {
	return fmt.Sprintf(`{"id":"msg_1","stop_reason":"end_turn","content":[{"type":"text","text":%q}]}`, text)
}

func toolUseResponse(id, name, input string) string {
	return fmt.Sprintf(`{"id":"msg_1","stop_reason":"tool_use","content":[{"type":"tool_use","id":%q,"name":%q,"input":%s}]}`, id, name, input)
}

func TestAnthropicClient_CompleteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "You summarize things.", body["system"])
		assert.NotContains(t, body, "tools")

		fmt.Fprint(w, textResponse("A concise answer."))
	}))
	defer server.Close()

	client := newTestClient(server)
	content, err := client.Complete(context.Background(), "You summarize things.", "Summarize.", nil)
	require.NoError(t, err)
	assert.Equal(t, "A concise answer.", content)
}

func TestAnthropicClient_CompleteToolRoundTrip(t *testing.T) {
	var executedArgs json.RawMessage
	tool := service.Tool{
		Name:        "lookup_bill",
		Description: "Fetches the full text of a bill.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bill_id": map[string]any{"type": "integer"},
			},
		},
		Execute: func(_ context.Context, args json.RawMessage) (any, error) {
			executedArgs = args
			return map[string]any{"bill_text": "Section 1. Zoning standards."}, nil
		},
	}

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var body struct {
			Tools    []map[string]any `json:"tools"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if requests == 1 {
			require.Len(t, body.Tools, 1)
			assert.Equal(t, "lookup_bill", body.Tools[0]["name"])
			fmt.Fprint(w, toolUseResponse("toolu_1", "lookup_bill", `{"bill_id":100}`))
			return
		}

		// Follow-up turn carries the assistant directive plus our tool result.
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "assistant", body.Messages[1].Role)
		assert.Equal(t, "user", body.Messages[2].Role)

		var results []map[string]any
		require.NoError(t, json.Unmarshal(body.Messages[2].Content, &results))
		require.Len(t, results, 1)
		assert.Equal(t, "tool_result", results[0]["type"])
		assert.Equal(t, "toolu_1", results[0]["tool_use_id"])
		assert.Contains(t, results[0]["content"], "Zoning standards")

		fmt.Fprint(w, textResponse("The bill sets zoning standards."))
	}))
	defer server.Close()

	client := newTestClient(server)
	content, err := client.Complete(context.Background(), "system", "What does HB100 do?", []service.Tool{tool})
	require.NoError(t, err)
	assert.Equal(t, "The bill sets zoning standards.", content)
	assert.Equal(t, 2, requests)
	assert.JSONEq(t, `{"bill_id":100}`, string(executedArgs))
}

func TestAnthropicClient_CompleteUnknownTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolUseResponse("toolu_1", "delete_everything", `{}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Complete(context.Background(), "system", "prompt", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReasoningMalformed)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestAnthropicClient_CompleteToolRoundLimit(t *testing.T) {
	tool := service.Tool{
		Name: "lookup_bill",
		Execute: func(_ context.Context, _ json.RawMessage) (any, error) {
			return "more", nil
		},
	}

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, toolUseResponse(fmt.Sprintf("toolu_%d", requests), "lookup_bill", `{}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Complete(context.Background(), "system", "prompt", []service.Tool{tool})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReasoningMalformed)
	assert.Contains(t, err.Error(), "round limit")
	assert.Equal(t, maxToolRounds+1, requests)
}

func TestAnthropicClient_CompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Complete(context.Background(), "system", "prompt", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimit)
}

func TestAnthropicClient_CompleteNoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"msg_1","stop_reason":"end_turn","content":[{"type":"thinking","text":""}]}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Complete(context.Background(), "system", "prompt", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReasoningMalformed)
}
