package mock

import (
	"context"
	"sync"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/llm"
)

// CompletionStep scripts one Complete call: either a response or an error.
type CompletionStep struct {
	Response llm.Response
	Err      error
}

// CompletionCall records what the adapter was asked for.
type CompletionCall struct {
	Turns []chat.Turn
	Tools []llm.Tool
}

// LLMProvider is a scripted chat provider for tests. Each Complete call
// consumes the next step; calls past the script return a canned response.
type LLMProvider struct {
	// DefaultText replaces the canned response once the script is exhausted.
	DefaultText string

	mu    sync.Mutex
	steps []CompletionStep
	calls []CompletionCall
}

func NewLLMProvider(steps ...CompletionStep) *LLMProvider {
	return &LLMProvider{steps: steps}
}

func (p *LLMProvider) Name() string { return "mock_llm" }

func (p *LLMProvider) Complete(ctx context.Context, turns []chat.Turn, tools []llm.Tool) (llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, CompletionCall{
		Turns: chat.CloneTurns(turns),
		Tools: append([]llm.Tool(nil), tools...),
	})

	if len(p.steps) == 0 {
		text := p.DefaultText
		if text == "" {
			text = "mock response"
		}
		return llm.Response{Text: text, FinishReason: "stop"}, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return step.Response, step.Err
}

// Calls returns every recorded Complete invocation.
func (p *LLMProvider) Calls() []CompletionCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompletionCall(nil), p.calls...)
}
