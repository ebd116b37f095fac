package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestSynthesizeCollectsChunksUntilFinal(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/voice-1/stream-input") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		sawText := false
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			_ = json.Unmarshal(data, &msg)
			text, _ := msg["text"].(string)
			if strings.Contains(text, "Paris") {
				sawText = true
			}
			if text == "" {
				break
			}
		}
		if !sawText {
			t.Errorf("reply text never reached the server")
		}

		_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte("abc"))})
		_ = conn.WriteJSON(map[string]any{"alignment": map[string]any{}})
		_ = conn.WriteJSON(map[string]any{
			"audio":   base64.StdEncoding.EncodeToString([]byte("def")),
			"isFinal": true,
		})
	}))
	defer srv.Close()

	s := New(Config{APIKey: "test-key", VoiceID: "voice-1"})
	s.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	audio, err := s.Synthesize(context.Background(), "A ticket to Paris is $899.")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio.Bytes) != "abcdef" {
		t.Fatalf("expected joined chunks, got %q", audio.Bytes)
	}
	if audio.MIME != "audio/mpeg" {
		t.Fatalf("unexpected mime %s", audio.MIME)
	}
}

func TestSynthesizeNoAudio(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			_ = json.Unmarshal(data, &msg)
			if text, _ := msg["text"].(string); text == "" {
				break
			}
		}
		_ = conn.WriteJSON(map[string]any{"isFinal": true})
	}))
	defer srv.Close()

	s := New(Config{APIKey: "test-key", VoiceID: "voice-1"})
	s.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, err := s.Synthesize(context.Background(), "Hello"); err == nil {
		t.Fatalf("expected error when no audio arrives")
	}
}

func TestSynthesizeRequiresConfig(t *testing.T) {
	s := New(Config{})
	if _, err := s.Synthesize(context.Background(), "Hello"); err == nil {
		t.Fatalf("expected config error")
	}
}
