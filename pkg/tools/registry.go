package tools

import (
	"strings"
	"sync"

	"github.com/jetwayhq/jetway/pkg/llm"
)

// HandlerFunc executes a tool against already-parsed arguments. The returned
// map is serialized verbatim into the tool turn payload.
type HandlerFunc func(args map[string]any) (map[string]any, error)

// Spec describes one invocable tool: the schema advertised to the provider
// and the handler that backs it. CueField, when set, names the argument key
// whose string value is surfaced as the turn's artifact cue.
type Spec struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     HandlerFunc
	CueField    string
}

// Registry holds the tools available to the assistant. Registration happens
// once at startup; Describe reflects registration order so the provider sees
// a deterministic tool list.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
	order []string
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

func (r *Registry) Register(spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return &InvalidSpecError{Reason: "empty tool name"}
	}
	if spec.Handler == nil {
		return &InvalidSpecError{Reason: "nil handler for " + name}
	}
	spec.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[name]; ok {
		return &DuplicateToolError{Name: name}
	}
	r.specs[name] = spec
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, &UnknownToolError{Name: name}
	}
	return spec, nil
}

// Describe returns the provider-facing tool list in registration order.
func (r *Registry) Describe() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		out = append(out, llm.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			Schema:      spec.Schema,
		})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
