package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/errorsx"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

type Config struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

// Synthesizer voices text over the ElevenLabs stream-input websocket. Each
// Synthesize call opens one connection, streams the text, collects every
// audio chunk until the final marker, and closes.
type Synthesizer struct {
	cfg Config
	// BaseURL overrides the production endpoint in tests (ws:// allowed).
	BaseURL string
}

func New(cfg Config) *Synthesizer {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string { return "elevenlabs" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	if s.cfg.APIKey == "" || s.cfg.VoiceID == "" {
		return speech.Audio{}, errors.New("missing elevenlabs config")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return speech.Audio{}, errors.New("empty text")
	}

	endpoint := s.buildURL()
	slog.Debug("connecting to ElevenLabs",
		slog.String("output_format", s.cfg.OutputFormat))

	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return speech.Audio{}, resilience.RateLimitError{Provider: "elevenlabs", Message: resp.Status}
		}
		return speech.Audio{}, errorsx.Wrap(err, errorsx.ReasonSpeechConnect)
	}
	defer conn.Close()

	// Close the socket when the caller gives up so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	opening := map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
		"generation_config": map[string]any{
			"chunk_length_schedule": []int{120, 160, 250, 290},
		},
	}
	if err := writeJSON(conn, opening); err != nil {
		return speech.Audio{}, err
	}
	if err := writeJSON(conn, map[string]any{"text": text + " ", "try_trigger_generation": true}); err != nil {
		return speech.Audio{}, err
	}
	// Empty text is the end-of-input marker.
	if err := writeJSON(conn, map[string]any{"text": ""}); err != nil {
		return speech.Audio{}, err
	}

	var buf bytes.Buffer
	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && buf.Len() > 0 {
				break
			}
			if ctx.Err() != nil {
				return speech.Audio{}, ctx.Err()
			}
			return speech.Audio{}, err
		}
		chunk, final, err := parseChunk(data)
		if err != nil {
			return speech.Audio{}, err
		}
		buf.Write(chunk)
		if final {
			break
		}
	}

	if buf.Len() == 0 {
		return speech.Audio{}, errors.New("no audio data")
	}
	return speech.Audio{Bytes: buf.Bytes(), MIME: mimeForOutput(s.cfg.OutputFormat)}, nil
}

func (s *Synthesizer) buildURL() string {
	base := s.BaseURL
	if base == "" {
		base = "wss://api.elevenlabs.io"
	}
	base += "/v1/text-to-speech/" + s.cfg.VoiceID + "/stream-input"
	q := url.Values{}
	if s.cfg.ModelID != "" {
		q.Set("model_id", s.cfg.ModelID)
	}
	q.Set("output_format", s.cfg.OutputFormat)
	return base + "?" + q.Encode()
}

func writeJSON(conn *websocket.Conn, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// parseChunk decodes one server message. ElevenLabs has shipped the audio
// field under several names.
func parseChunk(data []byte) ([]byte, bool, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("elevenlabs raw data", "data", string(data))
		return nil, false, nil
	}
	if errMsg, ok := msg["error"].(string); ok && errMsg != "" {
		return nil, false, errors.New(errMsg)
	}
	final, _ := msg["isFinal"].(bool)

	audio, ok := msg["audio"].(string)
	if !ok {
		if a, ok := msg["audio_base_64"].(string); ok {
			audio = a
		} else if a, ok := msg["audio_base64"].(string); ok {
			audio = a
		} else {
			return nil, final, nil
		}
	}
	if audio == "" {
		return nil, final, nil
	}
	raw, err := base64.StdEncoding.DecodeString(audio)
	if err != nil {
		return nil, false, err
	}
	return raw, final, nil
}

func mimeForOutput(format string) string {
	switch {
	case strings.HasPrefix(format, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(format, "pcm"):
		return "audio/pcm"
	case strings.HasPrefix(format, "ulaw"):
		return "audio/basic"
	default:
		return "application/octet-stream"
	}
}

var _ speech.Synthesizer = (*Synthesizer)(nil)
