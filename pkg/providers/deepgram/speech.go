package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/logging"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

const defaultModel = "aura-asteria-en"

type Config struct {
	APIKey       string
	Model        string
	Retries      int
	RetryBackoff time.Duration
}

// Synthesizer voices text through the Deepgram Aura speak API.
type Synthesizer struct {
	cfg     Config
	policy  resilience.RetryPolicy
	logger  *slog.Logger
	BaseURL string
	Client  *http.Client
}

func New(cfg Config) *Synthesizer {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Synthesizer{
		cfg:     cfg,
		policy:  resilience.NewRetryPolicy(cfg.Retries, cfg.RetryBackoff),
		logger:  logging.NewComponentLogger(slog.Default(), "deepgram_speech"),
		BaseURL: "https://api.deepgram.com",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *Synthesizer) Name() string { return "deepgram" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	if s.cfg.APIKey == "" {
		return speech.Audio{}, errors.New("missing deepgram config")
	}
	if text == "" {
		return speech.Audio{}, errors.New("empty text")
	}

	var out speech.Audio
	err := s.policy.Do(ctx, func() error {
		audio, err := s.speak(ctx, text)
		if err != nil {
			s.logger.Warn("speak_attempt_failed", slog.String("model", s.cfg.Model), slog.String("error", err.Error()))
			return err
		}
		out = audio
		return nil
	})
	return out, err
}

func (s *Synthesizer) speak(ctx context.Context, text string) (speech.Audio, error) {
	q := url.Values{}
	q.Set("model", s.cfg.Model)
	endpoint := s.BaseURL + "/v1/speak?" + q.Encode()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return speech.Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return speech.Audio{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.cfg.APIKey)

	resp, err := s.client().Do(req)
	if err != nil {
		return speech.Audio{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		b, _ := io.ReadAll(resp.Body)
		return speech.Audio{}, resilience.RateLimitError{Provider: "deepgram", Message: string(b)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return speech.Audio{}, errors.New(string(b))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, err
	}
	if len(raw) == 0 {
		return speech.Audio{}, errors.New("no audio data")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return speech.Audio{Bytes: raw, MIME: mime}, nil
}

func (s *Synthesizer) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

var _ speech.Synthesizer = (*Synthesizer)(nil)
