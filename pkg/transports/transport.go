package transports

import "context"

// Transport defines a vendor-agnostic conversation surface. Implementations
// own their network lifecycle and drive the turn runner themselves.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Drainable lets the engine wait for in-flight turns before shutdown.
type Drainable interface {
	WaitForEmpty(ctx context.Context) error
}

// ReadyReporter allows transports to expose readiness metadata (e.g., listen
// addresses). Implementations are optional and used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
