package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/llm"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

// ChatAdapter talks to the OpenAI chat completions API.
type ChatAdapter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewChatAdapter(apiKey, model string) *ChatAdapter {
	return &ChatAdapter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.openai.com/v1",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *ChatAdapter) Name() string { return "openai" }

func (a *ChatAdapter) Complete(ctx context.Context, turns []chat.Turn, tools []llm.Tool) (llm.Response, error) {
	if len(turns) == 0 {
		return llm.Response{}, errors.New("empty transcript")
	}
	body, err := a.buildRequest(turns, tools)
	if err != nil {
		return llm.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", body)
	if err != nil {
		return llm.Response{}, err
	}
	a.applyHeaders(req)
	resp, err := a.client().Do(req)
	if err != nil {
		return llm.Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return llm.Response{}, resilience.RateLimitError{
			Provider:   "openai",
			Message:    string(body),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return llm.Response{}, errors.New(string(body))
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return llm.Response{}, err
	}
	return parseCompletion(payload)
}

func (a *ChatAdapter) buildRequest(turns []chat.Turn, tools []llm.Tool) (*bytes.Buffer, error) {
	req := map[string]any{
		"model":    a.Model,
		"messages": mapTurns(turns),
	}
	if len(tools) > 0 {
		req["tools"] = mapTools(tools)
		req["tool_choice"] = "auto"
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(b), nil
}

func (a *ChatAdapter) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)
}

func (a *ChatAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func mapTurns(turns []chat.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		msg := map[string]any{
			"role":    string(t.Role),
			"content": t.Content,
		}
		if len(t.ToolCalls) > 0 {
			var calls []map[string]any
			for _, call := range t.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   call.ID,
					"type": "function",
					"function": map[string]any{
						"name":      call.Name,
						"arguments": call.Arguments,
					},
				})
			}
			msg["tool_calls"] = calls
		}
		if t.Role == chat.RoleTool {
			msg["tool_call_id"] = t.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func mapTools(tools []llm.Tool) []map[string]any {
	var out []map[string]any
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema,
			},
		})
	}
	return out
}

func parseCompletion(payload map[string]any) (llm.Response, error) {
	choices, _ := payload["choices"].([]any)
	if len(choices) == 0 {
		return llm.Response{}, errors.New("no choices")
	}
	first, _ := choices[0].(map[string]any)
	msg, _ := first["message"].(map[string]any)

	resp := llm.Response{}
	resp.Text, _ = msg["content"].(string)
	if reason, _ := first["finish_reason"].(string); reason != "" {
		resp.FinishReason = reason
	}
	if tc, ok := msg["tool_calls"].([]any); ok {
		for _, item := range tc {
			call, _ := item.(map[string]any)
			fn, _ := call["function"].(map[string]any)
			id := stringValue(call["id"])
			name := stringValue(fn["name"])
			// A call without an id or name cannot be answered with a tool
			// turn; drop it on ingress.
			if id == "" || name == "" {
				continue
			}
			resp.ToolCalls = append(resp.ToolCalls, chat.ToolCall{
				ID:        id,
				Name:      name,
				Arguments: stringValue(fn["arguments"]),
			})
		}
	}
	if usage, ok := payload["usage"].(map[string]any); ok {
		resp.Usage = llm.Usage{
			PromptTokens:     intValue(usage["prompt_tokens"]),
			CompletionTokens: intValue(usage["completion_tokens"]),
			TotalTokens:      intValue(usage["total_tokens"]),
		}
	}
	return resp, nil
}

// retryAfter parses the Retry-After header. OpenAI sends delay seconds, not
// an HTTP date.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	f, _ := v.(float64)
	return int(f)
}

var _ llm.Provider = (*ChatAdapter)(nil)
