package turn

import (
	"sync"
	"time"
)

type State int

const (
	StateAwaitingCompletion State = iota
	StateToolRequested
	StateDispatchingTool
	StateAwaitingFollowup
	StateAnswered
	StateFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateAwaitingCompletion:
		return "AWAITING_COMPLETION"
	case StateToolRequested:
		return "TOOL_REQUESTED"
	case StateDispatchingTool:
		return "DISPATCHING_TOOL"
	case StateAwaitingFollowup:
		return "AWAITING_FOLLOWUP"
	case StateAnswered:
		return "ANSWERED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// stateMachine tracks one user turn through its lifecycle. Answered and
// Failed are terminal; nothing loops back to DispatchingTool, which is what
// bounds a turn to a single tool round trip.
type stateMachine struct {
	currentState State
	mu           sync.RWMutex

	stateChangeListeners []StateListener
}

func newStateMachine() *stateMachine {
	return &stateMachine{currentState: StateAwaitingCompletion}
}

// State returns the current state.
func (sm *stateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// transitionValid checks if a state transition is valid (must be called with lock held).
func (sm *stateMachine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateAwaitingCompletion: {StateAnswered, StateToolRequested, StateFailed},
		StateToolRequested:      {StateDispatchingTool},
		StateDispatchingTool:    {StateAwaitingFollowup},
		StateAwaitingFollowup:   {StateAnswered, StateFailed},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (sm *stateMachine) Transition(state State, reason string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.transitionValid(sm.currentState, state) {
		return &InvalidTransitionError{
			From: sm.currentState,
			To:   state,
		}
	}

	oldState := sm.currentState
	sm.currentState = state

	event := StateChange{
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}

	// Notify listeners (release lock during notification to avoid deadlocks)
	listeners := make([]StateListener, len(sm.stateChangeListeners))
	copy(listeners, sm.stateChangeListeners)
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}

	sm.mu.Lock()
	return nil
}

// AddListener registers a listener for state change events.
func (sm *stateMachine) AddListener(listener StateListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stateChangeListeners = append(sm.stateChangeListeners, listener)
}

// Terminal reports whether the machine reached a final state.
func (sm *stateMachine) Terminal() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState == StateAnswered || sm.currentState == StateFailed
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
