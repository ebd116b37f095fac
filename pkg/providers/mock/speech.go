package mock

import (
	"context"
	"sync"

	"github.com/jetwayhq/jetway/pkg/adapters/speech"
)

type SpeechConfig struct {
	Bytes []byte
	MIME  string
	Err   error
}

// SpeechSynthesizer is a deterministic speech adapter for tests.
type SpeechSynthesizer struct {
	cfg   SpeechConfig
	mu    sync.Mutex
	texts []string
}

func NewSpeechSynthesizer(cfg SpeechConfig) *SpeechSynthesizer {
	if cfg.Bytes == nil {
		cfg.Bytes = []byte("mock-audio")
	}
	if cfg.MIME == "" {
		cfg.MIME = "audio/mpeg"
	}
	return &SpeechSynthesizer{cfg: cfg}
}

func (s *SpeechSynthesizer) Name() string { return "mock_speech" }

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.cfg.Err != nil {
		return speech.Audio{}, s.cfg.Err
	}
	return speech.Audio{Bytes: s.cfg.Bytes, MIME: s.cfg.MIME}, nil
}

// Texts returns every text passed to Synthesize.
func (s *SpeechSynthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

var _ speech.Synthesizer = (*SpeechSynthesizer)(nil)
