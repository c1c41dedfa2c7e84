package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/stt"
)

const completedTranscript = `{
  "id": "tx-42",
  "status": "completed",
  "text": "good morning",
  "words": [
    {"text": "good", "start": 10, "end": 300, "confidence": 0.92},
    {"text": "morning", "start": 320, "end": 900, "confidence": 0.88}
  ],
  "utterances": [{"speaker": "A", "text": "good morning", "start": 10, "end": 900}]
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIToken = "secret-token"
	return New(cfg, srv.Client(), metrics.NewMetrics(prometheus.NewRegistry()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "https://api.assemblyai.com/v2" {
		t.Errorf("unexpected base url %s", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		t.Error("expected a positive timeout")
	}
}

func TestClient_Upload(t *testing.T) {
	var gotBody []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("authorization") != "secret-token" {
			t.Errorf("missing authorization header")
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"upload_url":"https://cdn.example/abc"}`))
	}))

	uri, err := c.Upload(context.Background(), "audio/wav", []byte("RIFF...."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri != "https://cdn.example/abc" {
		t.Errorf("unexpected upload url %s", uri)
	}
	if string(gotBody) != "RIFF...." {
		t.Errorf("server received %q", gotBody)
	}
}

func TestClient_Submit(t *testing.T) {
	var got transcriptRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcript" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"id":"tx-42","status":"queued"}`))
	}))

	id, err := c.Submit(context.Background(), "https://cdn.example/abc", stt.Options{SpeakerDetection: true, AudioIntelligence: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "tx-42" {
		t.Errorf("expected id tx-42, got %s", id)
	}
	if got.AudioURL != "https://cdn.example/abc" || !got.SpeakerLabels || !got.LanguageDetection {
		t.Errorf("unexpected request body %+v", got)
	}
	if !got.AutoChapters || !got.EntityDetection || !got.IABCategories || !got.SentimentAnalysis || !got.AutoHighlights {
		t.Errorf("expected audio intelligence options, got %+v", got)
	}
}

func TestClient_SubmitWithoutAudioIntelligence(t *testing.T) {
	req := newTranscriptRequest("u", stt.Options{})
	if req.AutoChapters || req.EntityDetection || req.SpeakerLabels {
		t.Errorf("expected optional features off, got %+v", req)
	}
	if !req.LanguageDetection {
		t.Error("expected language detection to stay on")
	}
}

func TestClient_Poll(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState job.State
	}{
		{"queued", `{"id":"tx-42","status":"queued"}`, job.StateRunning},
		{"processing", `{"id":"tx-42","status":"processing"}`, job.StateRunning},
		{"error", `{"id":"tx-42","status":"error","error":"file does not appear to contain audio"}`, job.StateFailed},
		{"completed", completedTranscript, job.StateSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/transcript/tx-42" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))

			out, err := c.Poll(context.Background(), "tx-42", stt.Options{SpeakerDetection: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.State != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, out.State)
			}
			if out.JobID != "tx-42" {
				t.Errorf("expected job id tx-42, got %s", out.JobID)
			}
		})
	}
}

func TestClient_PollCompletedDocument(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completedTranscript))
	}))

	out, err := c.Poll(context.Background(), "tx-42", stt.Options{SpeakerDetection: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Document.Text() != "good morning" {
		t.Errorf("unexpected text %q", out.Document.Text())
	}
	if len(out.Document.Tags()) != 3 {
		t.Errorf("expected 3 tags, got %d", len(out.Document.Tags()))
	}
}

func TestClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Authentication error"}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.Poll(context.Background(), "tx-42", stt.Options{})
			if !errors.Is(err, stt.ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestClient_SubmitWithoutID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"queued"}`))
	}))

	if _, err := c.Submit(context.Background(), "u", stt.Options{}); !errors.Is(err, stt.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}
