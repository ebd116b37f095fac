package llm

import (
	"context"
	"sync"
	"time"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/metrics"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

// CircuitBreakerProvider wraps a Provider with rate-limit circuit breaking.
type CircuitBreakerProvider struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
	obs     metrics.Observer
	open    bool
	mu      sync.Mutex
}

func NewCircuitBreakerProvider(inner Provider, breaker *resilience.CircuitBreaker) *CircuitBreakerProvider {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(3, 30*time.Second)
	}
	return &CircuitBreakerProvider{inner: inner, breaker: breaker}
}

func (p *CircuitBreakerProvider) Name() string { return p.inner.Name() }

// SetObserver allows metrics emission for breaker events.
func (p *CircuitBreakerProvider) SetObserver(obs metrics.Observer) { p.obs = obs }

func (p *CircuitBreakerProvider) Complete(ctx context.Context, turns []chat.Turn, tools []Tool) (Response, error) {
	if !p.breaker.Allow() {
		p.setOpen(true)
		p.record(metrics.EventBreakerDenied)
		return Response{}, resilience.RateLimitError{Provider: p.Name(), Message: "degraded"}
	}
	p.setOpen(false)
	resp, err := p.inner.Complete(ctx, turns, tools)
	if err != nil {
		if resilience.IsRateLimit(err) {
			p.record(metrics.EventRateLimit)
		}
		p.breaker.OnError(err)
		return Response{}, err
	}
	p.breaker.OnSuccess()
	return resp, nil
}

func (p *CircuitBreakerProvider) record(name string) {
	if p.obs == nil {
		return
	}
	p.obs.RecordEvent(metrics.NewEvent(name, 0, map[string]string{
		"provider":  p.inner.Name(),
		"component": "llm",
	}, nil))
}

func (p *CircuitBreakerProvider) setOpen(open bool) {
	p.mu.Lock()
	changed := p.open != open
	p.open = open
	p.mu.Unlock()
	if !changed {
		return
	}
	if open {
		p.record(metrics.EventBreakerOpen)
		return
	}
	p.record(metrics.EventBreakerClose)
}
