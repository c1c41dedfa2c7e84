package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const listenResponse = `{
  "metadata": {"request_id": "req-1", "duration": 2.0},
  "results": {
    "channels": [{"alternatives": [{
      "transcript": "thanks for calling",
      "words": [
        {"word": "thanks", "start": 0.1, "end": 0.5, "confidence": 0.99, "speaker": 0},
        {"word": "for", "start": 0.5, "end": 0.7, "confidence": 0.98, "speaker": 0},
        {"word": "calling", "start": 0.7, "end": 1.3, "confidence": 0.97, "speaker": 0}
      ]
    }]}],
    "utterances": [{"speaker": 0, "transcript": "thanks for calling", "start": 0.1, "end": 1.3}],
    "summary": {"result": "success", "short": "A caller is thanked."}
  }
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIToken = "dg-key"
	return New(cfg, srv.Client(), metrics.NewMetrics(prometheus.NewRegistry()))
}

func TestClient_Transcribe(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listen" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("unexpected content type %q", got)
		}
		q := r.URL.Query()
		if q.Get("diarize") != "true" || q.Get("utterances") != "true" || q.Get("summarize") != "v2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("model") != "nova-2" || q.Get("language") != "en-US" {
			t.Errorf("unexpected model or language in %s", r.URL.RawQuery)
		}
		w.Write([]byte(listenResponse))
	}))

	opts := stt.Options{LanguageCode: "en-US", SpeakerDetection: true, Summarize: true}
	doc, err := c.Transcribe(context.Background(), "audio/wav", []byte("audio"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "thanks for calling" {
		t.Errorf("unexpected text %q", doc.Text())
	}
	// 3 words + 1 utterance + 1 summary
	if len(doc.Tags()) != 5 {
		t.Fatalf("expected 5 tags, got %d", len(doc.Tags()))
	}
	if last := doc.Tags()[4]; last.Kind != models.KindTopicSummary || last.Name != "A caller is thanked." {
		t.Errorf("expected the v2 summary as last tag, got %+v", last)
	}
}

func TestClient_QueryWithoutOptionalFeatures(t *testing.T) {
	c := New(DefaultConfig(), nil, metrics.NewMetrics(prometheus.NewRegistry()))
	q := c.query(stt.Options{})

	if q.Get("diarize") != "" || q.Get("summarize") != "" || q.Get("language") != "" {
		t.Errorf("expected no optional parameters, got %s", q.Encode())
	}
	if q.Get("punctuate") != "true" {
		t.Error("expected punctuation to be requested")
	}
}

func TestClient_TranscribeMissingSummary(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"request_id":"req-2"},"results":{"channels":[{"alternatives":[{"transcript":"","words":[]}]}],"utterances":[]}}`))
	}))

	_, err := c.Transcribe(context.Background(), "audio/wav", nil, stt.Options{Summarize: true})
	if !errors.Is(err, normalize.ErrMissingSection) {
		t.Errorf("expected ErrMissingSection, got %v", err)
	}
}

func TestClient_TranscribeUpstreamError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_code":"INVALID_AUTH"}`, http.StatusUnauthorized)
	}))

	_, err := c.Transcribe(context.Background(), "audio/wav", nil, stt.Options{})
	if !errors.Is(err, stt.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}
