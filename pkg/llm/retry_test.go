package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/llm"
	"github.com/jetwayhq/jetway/pkg/providers/mock"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

func askTurns() []chat.Turn {
	return []chat.Turn{chat.NewUserTurn("How much is a ticket to Tokyo?")}
}

func TestRetryProviderRecoversAfterTransientError(t *testing.T) {
	inner := mock.NewLLMProvider(
		mock.CompletionStep{Err: errors.New("connection reset")},
		mock.CompletionStep{Response: llm.Response{Text: "$1400", FinishReason: "stop"}},
	)
	var slept []time.Duration
	provider := llm.NewRetryProvider(inner, llm.RetryConfig{
		MaxAttempts: 3,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	})

	resp, err := provider.Complete(context.Background(), askTurns(), nil)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if resp.Text != "$1400" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if got := len(inner.Calls()); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one backoff sleep, got %d", len(slept))
	}
}

func TestRetryProviderExhaustsAttempts(t *testing.T) {
	inner := mock.NewLLMProvider(
		mock.CompletionStep{Err: errors.New("upstream 500")},
		mock.CompletionStep{Err: errors.New("upstream 500")},
	)
	provider := llm.NewRetryProvider(inner, llm.RetryConfig{
		MaxAttempts: 2,
		Sleep:       func(time.Duration) {},
	})

	_, err := provider.Complete(context.Background(), askTurns(), nil)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if got := len(inner.Calls()); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestRetryProviderPassesRateLimitThrough(t *testing.T) {
	inner := mock.NewLLMProvider(
		mock.CompletionStep{Err: resilience.RateLimitError{Provider: "openai", Message: "429"}},
	)
	provider := llm.NewRetryProvider(inner, llm.RetryConfig{
		MaxAttempts: 3,
		Sleep:       func(time.Duration) {},
	})

	_, err := provider.Complete(context.Background(), askTurns(), nil)
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if got := len(inner.Calls()); got != 1 {
		t.Fatalf("rate limits must not be retried, got %d attempts", got)
	}
}

func TestRetryProviderStopsWhenContextCancelled(t *testing.T) {
	inner := mock.NewLLMProvider()
	provider := llm.NewRetryProvider(inner, llm.RetryConfig{MaxAttempts: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Complete(ctx, askTurns(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(inner.Calls()); got != 0 {
		t.Fatalf("expected no attempts on a dead context, got %d", got)
	}
}
