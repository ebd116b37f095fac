package mock

import (
	"context"
	"sync/atomic"
)

// Transport is an in-memory transport for local testing and integration.
// It implements the transports.Transport interface without any network dependency.
type Transport struct {
	started atomic.Bool
	stopped atomic.Bool
}

func New() *Transport {
	return &Transport{}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.started.Store(true)
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	return nil
}

func (t *Transport) Stop() error {
	t.stopped.Store(true)
	return nil
}

// WaitForEmpty reports immediately; the mock never holds turns in flight.
func (t *Transport) WaitForEmpty(ctx context.Context) error { return nil }

// Started reports whether Start ran.
func (t *Transport) Started() bool { return t.started.Load() }

// Stopped reports whether Stop ran.
func (t *Transport) Stopped() bool { return t.stopped.Load() }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{"mode": "in_memory"}
}
