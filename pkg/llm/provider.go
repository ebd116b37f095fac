package llm

import (
	"context"

	"github.com/jetwayhq/jetway/pkg/chat"
)

// Tool is the machine-readable description submitted to the provider so it
// can elect to call the tool. Schema is a JSON Schema object describing the
// arguments.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is one completion. A response is a tool request exactly when it
// carries tool calls; otherwise Text is the direct answer.
type Response struct {
	Text         string
	FinishReason string
	ToolCalls    []chat.ToolCall
	Usage        Usage
}

func (r Response) IsToolRequest() bool {
	return len(r.ToolCalls) > 0
}

// Provider produces one completion for a transcript. Implementations must
// validate tool calls on ingress: a call without an id or name never reaches
// the caller. Passing no tools forces a direct answer.
type Provider interface {
	Complete(ctx context.Context, turns []chat.Turn, tools []Tool) (Response, error)
	Name() string
}
