package jetway

import (
	"fmt"
	"strings"

	"github.com/jetwayhq/jetway/pkg/adapters/image"
	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/llm"
)

type LLMFactory func(cfg Config) (llm.Provider, error)
type ImageFactory func(cfg Config) (image.Generator, error)
type SpeechFactory func(cfg Config) (speech.Synthesizer, error)

// ProviderRegistry maps vendor names from config to factory functions.
// Names are case-insensitive.
type ProviderRegistry struct {
	llm    map[string]LLMFactory
	image  map[string]ImageFactory
	speech map[string]SpeechFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		llm:    make(map[string]LLMFactory),
		image:  make(map[string]ImageFactory),
		speech: make(map[string]SpeechFactory),
	}
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterImage(name string, factory ImageFactory) {
	r.image[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterSpeech(name string, factory SpeechFactory) {
	r.speech[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.Provider, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildImage(provider string, cfg Config) (image.Generator, error) {
	fn := r.image[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("image provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildSpeech(provider string, cfg Config) (speech.Synthesizer, error) {
	fn := r.speech[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("speech provider not registered: %s", provider)
	}
	return fn(cfg)
}
