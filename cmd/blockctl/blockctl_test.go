package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpapi "ai-speech-blockifier/internal/http"
	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/blockify"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
	"ai-speech-blockifier/internal/service/stt/mock"
)

const pollingFixture = `{
  "id": "tx-1",
  "status": "completed",
  "text": "Hi there",
  "words": [
    {"text": "Hi", "start": 0, "end": 300, "confidence": 0.9},
    {"text": "there", "start": 400, "end": 700, "confidence": 0.8}
  ],
  "utterances": [{"speaker": "A", "text": "Hi there", "start": 0, "end": 700}]
}`

const syncFixture = `{
  "metadata": {"request_id": "req-1"},
  "results": {
    "channels": [{"alternatives": [{
      "transcript": "yes",
      "words": [{"word": "yes", "punctuated_word": "yes", "start": 0.5, "end": 0.75}]
    }]}]
  }
}`

func decodeDoc(t *testing.T, b []byte) *models.Document {
	t.Helper()
	var doc models.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return &doc
}

func TestRunNormalize_Polling(t *testing.T) {
	var out bytes.Buffer
	opts := normalizeOptions{shape: shapePolling, features: normalize.Features{SpeakerDetection: true}}

	if err := runNormalize(strings.NewReader(pollingFixture), &out, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := decodeDoc(t, out.Bytes())
	if doc.Text() != "Hi there" {
		t.Errorf("unexpected text %q", doc.Text())
	}
	tags := doc.Tags()
	if len(tags) != 3 {
		t.Fatalf("expected 2 timestamps and 1 speaker, got %d tags", len(tags))
	}
	if tags[2].Kind != models.KindSpeaker || tags[2].Name != "A" {
		t.Errorf("unexpected speaker tag %+v", tags[2])
	}
}

func TestRunNormalize_Sync(t *testing.T) {
	var out bytes.Buffer

	if err := runNormalize(strings.NewReader(syncFixture), &out, normalizeOptions{shape: shapeSync, compact: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Errorf("expected one line of compact output, got %q", out.String())
	}
	if doc := decodeDoc(t, out.Bytes()); len(doc.Tags()) != 1 {
		t.Errorf("expected 1 timestamp tag, got %d", len(doc.Tags()))
	}
}

func TestRunNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    normalizeOptions
		wantErr error
	}{
		{"missing requested section", pollingFixture, normalizeOptions{shape: shapePolling, features: normalize.Features{AudioIntelligence: true}}, normalize.ErrMissingSection},
		{"still running", `{"id":"tx-2","status":"processing"}`, normalizeOptions{shape: shapePolling}, nil},
		{"failed job", `{"id":"tx-3","status":"error","error":"bad audio"}`, normalizeOptions{shape: shapePolling}, nil},
		{"bad json", `{`, normalizeOptions{shape: shapeSync}, nil},
		{"unknown shape", `{}`, normalizeOptions{shape: "stream"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runNormalize(strings.NewReader(tt.input), &bytes.Buffer{}, tt.opts)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.json")
	if err := os.WriteFile(path, []byte(pollingFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"normalize", "--provider", "polling", "--speakers", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if doc := decodeDoc(t, out.Bytes()); doc.Text() != "Hi there" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func newBlockifierServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, err := blockify.New(mock.New(mock.DefaultConfig()), blockify.Config{
		Options: stt.Options{SpeakerDetection: true},
		Metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.RouterConfig{Blockifier: h}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmitAndWait(t *testing.T) {
	srv := newBlockifierServer(t)
	c := &apiClient{base: srv.URL, http: srv.Client()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := c.submitAndWait(ctx, "audio/wav", []byte("audio"), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != "succeeded" || out.Document == nil || len(out.Document.Tags()) == 0 {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestSubmitAndWait_Failure(t *testing.T) {
	srv := newBlockifierServer(t)
	c := &apiClient{base: srv.URL, http: srv.Client()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.submitAndWait(ctx, "audio/wav", nil, 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), mock.EmptyAudioReason) {
		t.Errorf("expected the provider failure reason, got %v", err)
	}
}

func TestSubmitAndWait_Rejected(t *testing.T) {
	srv := newBlockifierServer(t)
	c := &apiClient{base: srv.URL, http: srv.Client()}

	_, err := c.submitAndWait(context.Background(), "image/png", []byte("x"), time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "415") {
		t.Errorf("expected a 415 error, got %v", err)
	}
}

func TestSubmitCommand_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.xyz")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"submit", "--server", "http://127.0.0.1:1", path})

	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--mime") {
		t.Errorf("expected a mime inference error, got %v", err)
	}
}
