package chat

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a provider-issued request to invoke a named tool.
// Arguments carries the raw JSON exactly as the provider produced it;
// parsing (and its failure mode) belongs to the dispatcher.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Turn is a single transcript entry. Turns are immutable once appended.
// ToolCalls is set only on an assistant turn that requests a tool.
// ToolCallID is set only on a tool turn and must echo the id of the
// assistant call it answers.
type Turn struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// NewAssistantCallTurn records the assistant turn that carries a tool request.
func NewAssistantCallTurn(content string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolTurn records a tool result payload for the call it answers.
func NewToolTurn(callID, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: callID}
}

// CloneTurns returns an independent copy of a turn slice.
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
