package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynthesizeSpeak(t *testing.T) {
	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speak" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("model"); got != defaultModel {
			t.Errorf("model query: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("auth header: %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("aura-bytes"))
	}))
	defer srv.Close()

	s := New(Config{APIKey: "test-key"})
	s.BaseURL = srv.URL

	audio, err := s.Synthesize(context.Background(), "Welcome aboard.")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio.Bytes) != "aura-bytes" || audio.MIME != "audio/mpeg" {
		t.Fatalf("unexpected audio: %+v", audio)
	}
	if captured["text"] != "Welcome aboard." {
		t.Fatalf("request text: %q", captured["text"])
	}
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("aura-bytes"))
	}))
	defer srv.Close()

	s := New(Config{APIKey: "test-key", Retries: 2, RetryBackoff: time.Millisecond})
	s.BaseURL = srv.URL

	if _, err := s.Synthesize(context.Background(), "Welcome aboard."); err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestSynthesizeRequiresConfig(t *testing.T) {
	s := New(Config{})
	if _, err := s.Synthesize(context.Background(), "Hello"); err == nil {
		t.Fatalf("expected config error")
	}
}
