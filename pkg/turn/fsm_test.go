package turn

import (
	"errors"
	"sync"
	"testing"
)

type captureListener struct {
	mu     sync.Mutex
	events []StateChange
}

func (c *captureListener) OnStateChange(ev StateChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureListener) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestStateMachineToolPath(t *testing.T) {
	listener := &captureListener{}
	sm := newStateMachine()
	sm.AddListener(listener)

	steps := []State{StateToolRequested, StateDispatchingTool, StateAwaitingFollowup, StateAnswered}
	for _, s := range steps {
		if err := sm.Transition(s, "test"); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	if sm.State() != StateAnswered {
		t.Fatalf("expected ANSWERED, got %s", sm.State())
	}
	if !sm.Terminal() {
		t.Fatalf("expected terminal state")
	}
	if listener.Count() != len(steps) {
		t.Fatalf("expected %d state change events, got %d", len(steps), listener.Count())
	}
}

func TestStateMachineDirectAnswer(t *testing.T) {
	sm := newStateMachine()
	if err := sm.Transition(StateAnswered, "direct"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if !sm.Terminal() {
		t.Fatalf("expected terminal state after direct answer")
	}
}

func TestStateMachineRejectsSecondDispatch(t *testing.T) {
	sm := newStateMachine()
	for _, s := range []State{StateToolRequested, StateDispatchingTool, StateAwaitingFollowup} {
		if err := sm.Transition(s, "test"); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	err := sm.Transition(StateDispatchingTool, "second tool")
	if err == nil {
		t.Fatalf("expected invalid transition error")
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if sm.State() != StateAwaitingFollowup {
		t.Fatalf("state changed on rejected transition: %s", sm.State())
	}
}

func TestStateMachineTerminalStatesAreFinal(t *testing.T) {
	sm := newStateMachine()
	if err := sm.Transition(StateFailed, "provider down"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := sm.Transition(StateAnswered, "late answer"); err == nil {
		t.Fatalf("expected rejection of transition out of FAILED")
	}
}
