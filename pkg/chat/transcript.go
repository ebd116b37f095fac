package chat

import (
	"errors"
	"sync"
)

// ErrSystemTurn is returned when a caller tries to append a second system turn.
var ErrSystemTurn = errors.New("transcript already holds a system turn")

// Transcript is an append-only conversation log. The first turn is always
// the single system turn seeded at construction; it is never removed,
// replaced, or duplicated.
type Transcript struct {
	mu    sync.Mutex
	turns []Turn
}

// NewTranscript seeds a transcript with its system turn.
func NewTranscript(system string) *Transcript {
	return &Transcript{turns: []Turn{NewSystemTurn(system)}}
}

// Append adds turns to the end of the transcript. System turns are rejected;
// everything else is accepted in order.
func (t *Transcript) Append(turns ...Turn) error {
	for _, turn := range turns {
		if turn.Role == RoleSystem {
			return ErrSystemTurn
		}
	}
	t.mu.Lock()
	t.turns = append(t.turns, turns...)
	t.mu.Unlock()
	return nil
}

// Snapshot returns a defensive copy of the current turns. Mutating the
// returned slice never affects the transcript.
func (t *Transcript) Snapshot() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CloneTurns(t.turns)
}

// Clear drops everything except the initial system turn.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.turns = t.turns[:1]
	t.mu.Unlock()
}

// Len reports the number of turns including the system turn.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

// SystemPrompt returns the content of the seeding system turn.
func (t *Transcript) SystemPrompt() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turns[0].Content
}
