package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

const (
	defaultSpeechModel  = "tts-1"
	defaultSpeechVoice  = "onyx"
	defaultSpeechFormat = "mp3"
)

// SpeechAdapter voices replies through the OpenAI audio API.
type SpeechAdapter struct {
	APIKey  string
	Model   string
	Voice   string
	Format  string
	BaseURL string
	Client  *http.Client
}

func NewSpeechAdapter(apiKey, model, voice string) *SpeechAdapter {
	if model == "" {
		model = defaultSpeechModel
	}
	if voice == "" {
		voice = defaultSpeechVoice
	}
	return &SpeechAdapter{
		APIKey:  apiKey,
		Model:   model,
		Voice:   voice,
		BaseURL: "https://api.openai.com/v1",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *SpeechAdapter) Name() string { return "openai_speech" }

func (a *SpeechAdapter) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	if text == "" {
		return speech.Audio{}, errors.New("empty text")
	}
	payload := map[string]any{
		"model":           a.Model,
		"input":           text,
		"voice":           a.Voice,
		"response_format": a.format(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return speech.Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/audio/speech", bytes.NewBuffer(b))
	if err != nil {
		return speech.Audio{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.client().Do(req)
	if err != nil {
		return speech.Audio{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return speech.Audio{}, resilience.RateLimitError{Provider: "openai_speech", Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return speech.Audio{}, errors.New(string(body))
	}

	// The audio endpoint streams raw bytes, not JSON.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, err
	}
	if len(raw) == 0 {
		return speech.Audio{}, errors.New("no audio data")
	}
	return speech.Audio{Bytes: raw, MIME: mimeForFormat(a.format())}, nil
}

func (a *SpeechAdapter) format() string {
	if a.Format != "" {
		return a.Format
	}
	return defaultSpeechFormat
}

func (a *SpeechAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func mimeForFormat(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

var _ speech.Synthesizer = (*SpeechAdapter)(nil)
