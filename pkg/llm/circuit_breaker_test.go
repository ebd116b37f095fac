package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/jetwayhq/jetway/pkg/llm"
	"github.com/jetwayhq/jetway/pkg/metrics"
	"github.com/jetwayhq/jetway/pkg/providers/mock"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

func TestCircuitBreakerProviderTripsAndRecovers(t *testing.T) {
	inner := mock.NewLLMProvider(
		mock.CompletionStep{Err: resilience.RateLimitError{Provider: "openai", Message: "429"}},
		mock.CompletionStep{Response: llm.Response{Text: "back online", FinishReason: "stop"}},
	)
	breaker := resilience.NewCircuitBreaker(1, 20*time.Millisecond)
	provider := llm.NewCircuitBreakerProvider(inner, breaker)
	mem := metrics.NewMemoryObserver()
	provider.SetObserver(mem)

	ctx := context.Background()

	// First call trips the breaker on the vendor 429.
	if _, err := provider.Complete(ctx, askTurns(), nil); !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	// Second call is denied locally without reaching the vendor.
	if _, err := provider.Complete(ctx, askTurns(), nil); !resilience.IsRateLimit(err) {
		t.Fatalf("expected breaker denial, got %v", err)
	}
	if got := len(inner.Calls()); got != 1 {
		t.Fatalf("denied call must not reach the provider, got %d calls", got)
	}

	time.Sleep(50 * time.Millisecond)

	resp, err := provider.Complete(ctx, askTurns(), nil)
	if err != nil {
		t.Fatalf("expected recovery after cooldown, got %v", err)
	}
	if resp.Text != "back online" {
		t.Fatalf("unexpected text %q", resp.Text)
	}

	want := []string{
		metrics.EventRateLimit,
		metrics.EventBreakerOpen,
		metrics.EventBreakerDenied,
		metrics.EventBreakerClose,
	}
	got := mem.Names()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCircuitBreakerProviderCountsToThreshold(t *testing.T) {
	inner := mock.NewLLMProvider(
		mock.CompletionStep{Err: resilience.RateLimitError{Provider: "openai"}},
		mock.CompletionStep{Err: resilience.RateLimitError{Provider: "openai"}},
		mock.CompletionStep{Err: resilience.RateLimitError{Provider: "openai"}},
	)
	provider := llm.NewCircuitBreakerProvider(inner, resilience.NewCircuitBreaker(3, time.Minute))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := provider.Complete(ctx, askTurns(), nil); !resilience.IsRateLimit(err) {
			t.Fatalf("call %d: expected rate limit, got %v", i, err)
		}
	}
	// All three reached the vendor; the fourth is denied.
	if got := len(inner.Calls()); got != 3 {
		t.Fatalf("expected 3 vendor calls, got %d", got)
	}
	if _, err := provider.Complete(ctx, askTurns(), nil); !resilience.IsRateLimit(err) {
		t.Fatalf("expected denial past threshold, got %v", err)
	}
	if got := len(inner.Calls()); got != 3 {
		t.Fatalf("denied call leaked to the vendor, got %d calls", got)
	}
}
