package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jetwayhq/jetway/pkg/metrics"
)

// LatencyObserver correlates the events of one turn and logs a latency
// breakdown when the turn finishes.
type LatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*trace
	log    *slog.Logger
}

type trace struct {
	started     time.Time
	firstLLM    time.Time
	toolDone    time.Time
	followupLLM time.Time
	tool        string
	provider    string
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		traces: make(map[string]*trace),
		log:    log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	turnID := ""
	if ev.Tags != nil {
		turnID = ev.Tags["turn_id"]
	}
	if turnID == "" {
		return
	}
	o.mu.Lock()
	t := o.traces[turnID]
	if t == nil {
		t = &trace{}
		o.traces[turnID] = t
	}
	switch ev.Name {
	case metrics.EventTurnStarted:
		if t.started.IsZero() {
			t.started = ev.Time
		}
		if t.provider == "" && ev.Tags != nil {
			t.provider = ev.Tags["provider"]
		}
	case metrics.EventLLMCompleted:
		if t.firstLLM.IsZero() {
			t.firstLLM = ev.Time
		} else {
			t.followupLLM = ev.Time
		}
	case metrics.EventToolResult:
		t.toolDone = ev.Time
		if tool, ok := ev.Fields["tool"].(string); ok {
			t.tool = tool
		}
	case metrics.EventTurnAnswered, metrics.EventTurnFailed:
		o.logTurnLocked(turnID, t, ev.Time, ev.Name)
		delete(o.traces, turnID)
	}
	o.mu.Unlock()
}

func (o *LatencyObserver) logTurnLocked(turnID string, t *trace, end time.Time, outcome string) {
	o.log.Info("latency",
		"turn_id", turnID,
		"provider", t.provider,
		"tool", t.tool,
		"outcome", outcome,
		"completion_ms", durationMs(t.started, t.firstLLM),
		"tool_ms", durationMs(t.firstLLM, t.toolDone),
		"followup_ms", durationMs(t.toolDone, t.followupLLM),
		"total_ms", durationMs(t.started, end),
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
