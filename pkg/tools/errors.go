package tools

// DuplicateToolError reports a registration against a name already taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return "tool already registered: " + e.Name
}

// UnknownToolError reports a lookup for a name nobody registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "tool not registered: " + e.Name
}

// InvalidSpecError reports a spec that cannot be registered at all.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return "invalid tool spec: " + e.Reason
}
