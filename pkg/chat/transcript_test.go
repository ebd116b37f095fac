package chat

import "testing"

func TestTranscriptSeedsSystemTurn(t *testing.T) {
	tr := NewTranscript("be brief")
	if tr.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", tr.Len())
	}
	turns := tr.Snapshot()
	if turns[0].Role != RoleSystem {
		t.Fatalf("expected system head, got %s", turns[0].Role)
	}
	if turns[0].Content != "be brief" {
		t.Fatalf("unexpected system content %q", turns[0].Content)
	}
}

func TestTranscriptRejectsSecondSystemTurn(t *testing.T) {
	tr := NewTranscript("be brief")
	if err := tr.Append(NewSystemTurn("another")); err != ErrSystemTurn {
		t.Fatalf("expected ErrSystemTurn, got %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected transcript unchanged, got %d turns", tr.Len())
	}
}

func TestTranscriptAppendKeepsOrder(t *testing.T) {
	tr := NewTranscript("sys")
	if err := tr.Append(NewUserTurn("hi"), NewAssistantTurn("hello")); err != nil {
		t.Fatalf("append error: %v", err)
	}
	turns := tr.Snapshot()
	want := []Role{RoleSystem, RoleUser, RoleAssistant}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(turns))
	}
	for i, role := range want {
		if turns[i].Role != role {
			t.Fatalf("turn %d: expected role %s, got %s", i, role, turns[i].Role)
		}
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	tr := NewTranscript("sys")
	_ = tr.Append(NewUserTurn("hi"))
	snap := tr.Snapshot()
	snap[0].Content = "mutated"
	snap[1] = NewAssistantTurn("injected")
	fresh := tr.Snapshot()
	if fresh[0].Content != "sys" {
		t.Fatalf("snapshot mutation leaked into transcript")
	}
	if fresh[1].Role != RoleUser || fresh[1].Content != "hi" {
		t.Fatalf("snapshot mutation leaked into transcript turns")
	}
}

func TestClearKeepsSystemHead(t *testing.T) {
	tr := NewTranscript("sys")
	_ = tr.Append(NewUserTurn("hi"), NewAssistantTurn("hello"))
	tr.Clear()
	if tr.Len() != 1 {
		t.Fatalf("expected 1 turn after clear, got %d", tr.Len())
	}
	if tr.Snapshot()[0].Role != RoleSystem {
		t.Fatalf("expected system head after clear")
	}
	if err := tr.Append(NewUserTurn("again")); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	if tr.Len() != 2 {
		t.Fatalf("expected 2 turns, got %d", tr.Len())
	}
}

func TestToolTurnCarriesCallID(t *testing.T) {
	turn := NewToolTurn("call-1", `{"price":"$899"}`)
	if turn.Role != RoleTool {
		t.Fatalf("expected tool role, got %s", turn.Role)
	}
	if turn.ToolCallID != "call-1" {
		t.Fatalf("expected call id preserved, got %q", turn.ToolCallID)
	}
}
