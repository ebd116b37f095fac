package turn

import "fmt"

// MalformedArgumentsError reports a tool call whose arguments were not a
// JSON object. It is surfaced to the model as a tool payload, never to the
// caller.
type MalformedArgumentsError struct {
	Tool string
	Err  error
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("malformed arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *MalformedArgumentsError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure raised by a tool handler.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ProviderUnavailableError reports that the chat provider could not complete
// a request. Turns that fail this way leave the caller's transcript exactly
// as it was.
type ProviderUnavailableError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable during %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }
