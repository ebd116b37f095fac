package metrics

import "sync"

// MemoryObserver collects events in memory for tests.
type MemoryObserver struct {
	mu     sync.Mutex
	Events []MetricsEvent
}

func NewMemoryObserver() *MemoryObserver {
	return &MemoryObserver{}
}

func (m *MemoryObserver) RecordEvent(ev MetricsEvent) {
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
}

// Names returns the recorded event names in arrival order.
func (m *MemoryObserver) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, ev := range m.Events {
		out[i] = ev.Name
	}
	return out
}

// Reset drops everything recorded so far.
func (m *MemoryObserver) Reset() {
	m.mu.Lock()
	m.Events = nil
	m.mu.Unlock()
}
