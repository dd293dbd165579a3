package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/service"
)

// maxToolRounds caps how many function-call round trips a single Complete
// call may make before giving up.
const maxToolRounds = 4

// anthropicClient implements the Client interface for the Anthropic API.
type anthropicClient struct {
	httpClient  *http.Client
	limiter     *rateLimiter
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &anthropicClient{
		baseURL:     "https://api.anthropic.com",
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RequestsPerMinute),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// anthropicMessage is one turn in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentBlock is one element of a response's content array.
type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete submits the prompt and returns the final text response. When the
// model issues a function-call directive, the named tool is executed and its
// result fed back as a follow-up turn, up to maxToolRounds times.
func (c *anthropicClient) Complete(ctx context.Context, system, prompt string, tools []service.Tool) (string, error) {
	toolIndex := make(map[string]service.ToolFunc, len(tools))
	toolDecls := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		toolIndex[t.Name] = t.Execute
		toolDecls = append(toolDecls, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}

	messages := []anthropicMessage{{Role: "user", Content: prompt}}

	for round := 0; round <= maxToolRounds; round++ {
		resp, err := c.send(ctx, system, messages, toolDecls)
		if err != nil {
			return "", err
		}

		if resp.StopReason != "tool_use" {
			for _, block := range resp.Content {
				if block.Type == "text" {
					return block.Text, nil
				}
			}
			return "", fmt.Errorf("%w: no text content in response", common.ErrReasoningMalformed)
		}

		// Execute every tool_use block and answer with tool_result turns.
		var results []map[string]any
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}
			fn, ok := toolIndex[block.Name]
			if !ok {
				return "", fmt.Errorf("%w: unknown tool %q requested", common.ErrReasoningMalformed, block.Name)
			}
			out, err := fn(ctx, block.Input)
			if err != nil {
				return "", fmt.Errorf("tool %s failed: %w", block.Name, err)
			}
			encoded, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("tool %s result not encodable: %w", block.Name, err)
			}
			results = append(results, map[string]any{
				"type":        "tool_result",
				"tool_use_id": block.ID,
				"content":     string(encoded),
			})
		}

		messages = append(messages,
			anthropicMessage{Role: "assistant", Content: resp.Content},
			anthropicMessage{Role: "user", Content: results})
	}

	return "", fmt.Errorf("%w: tool round limit exceeded", common.ErrReasoningMalformed)
}

func (c *anthropicClient) send(ctx context.Context, system string, messages []anthropicMessage, tools []map[string]any) (*anthropicResponse, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      system,
		"messages":    messages,
	}
	if len(tools) > 0 {
		requestBody["tools"] = tools
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrReasoningTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return nil, fmt.Errorf("%w: no content in response", common.ErrReasoningMalformed)
	}

	return &response, nil
}
