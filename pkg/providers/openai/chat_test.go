package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/llm"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

func testTurns() []chat.Turn {
	return []chat.Turn{
		chat.NewSystemTurn("You are a concise airline assistant."),
		chat.NewUserTurn("How much is a ticket to Paris?"),
	}
}

func priceTool() llm.Tool {
	return llm.Tool{
		Name:        "get_ticket_price",
		Description: "Get the price of a return ticket to the destination city.",
		Schema:      map[string]any{"type": "object"},
	}
}

func TestChatAdapterComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": "A ticket to Paris is $899."}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
		}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	adapter.BaseURL = srv.URL

	resp, err := adapter.Complete(context.Background(), testTurns(), []llm.Tool{priceTool()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "A ticket to Paris is $899." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.FinishReason != "stop" || resp.IsToolRequest() {
		t.Fatalf("unexpected finish: %+v", resp)
	}
	if resp.Usage.TotalTokens != 51 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}

	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("request model: %v", captured["model"])
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("first message role: %v", first["role"])
	}
	toolsField, _ := captured["tools"].([]any)
	if len(toolsField) != 1 {
		t.Fatalf("expected 1 tool in request, got %d", len(toolsField))
	}
	wrapper, _ := toolsField[0].(map[string]any)
	if wrapper["type"] != "function" {
		t.Fatalf("tool wrapper type: %v", wrapper["type"])
	}
	if captured["tool_choice"] != "auto" {
		t.Fatalf("tool_choice: %v", captured["tool_choice"])
	}
}

func TestChatAdapterParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"finish_reason": "tool_calls", "message": {
				"role": "assistant",
				"content": null,
				"tool_calls": [
					{"id": "call_1", "type": "function", "function": {
						"name": "get_ticket_price",
						"arguments": "{\"destination_city\":\"Paris\"}"
					}},
					{"id": "", "type": "function", "function": {
						"name": "get_ticket_price",
						"arguments": "{}"
					}}
				]
			}}]
		}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	adapter.BaseURL = srv.URL

	resp, err := adapter.Complete(context.Background(), testTurns(), []llm.Tool{priceTool()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !resp.IsToolRequest() {
		t.Fatalf("expected tool request, got %+v", resp)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("call without an id must be dropped on ingress, got %d calls", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "get_ticket_price" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.Arguments != `{"destination_city":"Paris"}` {
		t.Fatalf("arguments must stay raw JSON, got %q", call.Arguments)
	}
}

func TestChatAdapterOmitsToolsWhenNoneRegistered(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"finish_reason": "stop", "message": {"content": "Hi."}}]}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	adapter.BaseURL = srv.URL

	if _, err := adapter.Complete(context.Background(), testTurns(), nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, present := captured["tools"]; present {
		t.Fatalf("tools must be omitted when none are offered")
	}
	if _, present := captured["tool_choice"]; present {
		t.Fatalf("tool_choice must be omitted when no tools are offered")
	}
}

func TestChatAdapterSerializesToolTurns(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"finish_reason": "stop", "message": {"content": "Done."}}]}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	adapter.BaseURL = srv.URL

	turns := testTurns()
	turns = append(turns,
		chat.NewAssistantCallTurn("", []chat.ToolCall{{ID: "call_1", Name: "get_ticket_price", Arguments: `{"destination_city":"Paris"}`}}),
		chat.NewToolTurn("call_1", `{"destination_city":"Paris","price":"$899"}`),
	)
	if _, err := adapter.Complete(context.Background(), turns, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	assistant, _ := msgs[2].(map[string]any)
	calls, _ := assistant["tool_calls"].([]any)
	if len(calls) != 1 {
		t.Fatalf("assistant message should carry tool_calls, got %v", assistant)
	}
	wrapper, _ := calls[0].(map[string]any)
	fn, _ := wrapper["function"].(map[string]any)
	if fn["arguments"] != `{"destination_city":"Paris"}` {
		t.Fatalf("call arguments: %v", fn["arguments"])
	}
	toolMsg, _ := msgs[3].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_1" {
		t.Fatalf("tool message: %v", toolMsg)
	}
}

func TestChatAdapterRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	adapter.BaseURL = srv.URL

	_, err := adapter.Complete(context.Background(), testTurns(), nil)
	if err == nil {
		t.Fatalf("expected rate limit error")
	}
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit classification, got %v", err)
	}
	var rl resilience.RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 12*time.Second {
		t.Fatalf("expected RetryAfter carried through, got %+v", rl)
	}
}

func TestChatAdapterRejectsEmptyTranscript(t *testing.T) {
	adapter := NewChatAdapter("test-key", "gpt-4o-mini")
	if _, err := adapter.Complete(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for empty transcript")
	}
}
