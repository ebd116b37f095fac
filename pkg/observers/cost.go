package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jetwayhq/jetway/pkg/metrics"
)

// CostSummary aggregates vendor usage for one provider over the process
// lifetime. One file per provider is written at Close.
type CostSummary struct {
	Provider         string  `json:"provider"`
	Turns            int     `json:"turns"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Images           int     `json:"images"`
	SpeechClips      int     `json:"speech_clips"`
	SpeechChars      int     `json:"speech_chars"`
	SpeechSeconds    float64 `json:"speech_seconds"`
	RecordedAtUTC    string  `json:"recorded_at_utc"`
}

type CostObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*CostSummary
}

func NewCostObserver(dir string) *CostObserver {
	return &CostObserver{dir: dir, stats: make(map[string]*CostSummary)}
}

func (o *CostObserver) RecordEvent(ev metrics.MetricsEvent) {
	if strings.TrimSpace(o.dir) == "" {
		return
	}
	provider := ""
	if ev.Tags != nil {
		provider = ev.Tags["provider"]
	}
	if provider == "" {
		return
	}

	switch ev.Name {
	case metrics.EventLLMCompleted:
		o.mu.Lock()
		stat := o.statLocked(provider)
		stat.Turns++
		stat.PromptTokens += intField(ev.Fields, "prompt_tokens")
		stat.CompletionTokens += intField(ev.Fields, "completion_tokens")
		o.mu.Unlock()
	case metrics.EventImageGenerated:
		o.mu.Lock()
		o.statLocked(provider).Images++
		o.mu.Unlock()
	case metrics.EventSpeechGenerated:
		o.mu.Lock()
		stat := o.statLocked(provider)
		stat.SpeechClips++
		stat.SpeechChars += intField(ev.Fields, "chars")
		stat.SpeechSeconds += ev.Value
		o.mu.Unlock()
	}
}

func (o *CostObserver) statLocked(provider string) *CostSummary {
	stat := o.stats[provider]
	if stat == nil {
		stat = &CostSummary{Provider: provider}
		o.stats[provider] = stat
	}
	return stat
}

func (o *CostObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for provider, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, sanitizeID(provider)+".cost.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

var _ metrics.Observer = (*CostObserver)(nil)
