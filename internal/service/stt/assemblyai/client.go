// Package assemblyai provides the polling transcription provider.
// Audio is uploaded, a transcript job is submitted, and the job is polled
// until it reports completed or error.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const Name = "assemblyai"

// Config holds client configuration.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// DefaultConfig returns the public API endpoint with a two minute timeout.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.assemblyai.com/v2",
		Timeout: 2 * time.Minute,
	}
}

// Client implements stt.AsyncTranscriber over the provider's REST API.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		metrics: m,
		log:     logging.WithComponent("stt-assemblyai"),
	}
}

var _ stt.AsyncTranscriber = (*Client)(nil)

func (c *Client) Name() string {
	return Name
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// Upload sends the raw audio and returns the private URL the provider reads it from.
func (c *Client) Upload(ctx context.Context, mimeType string, audio []byte) (string, error) {
	var out uploadResponse
	err := c.do(ctx, "upload", http.MethodPost, "/upload", "application/octet-stream", bytes.NewReader(audio), &out)
	if err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no url", stt.ErrUpstream)
	}
	c.log.Debug().
		Str("mimeType", mimeType).
		Int("bytes", len(audio)).
		Msg("Audio uploaded")
	return out.UploadURL, nil
}

// transcriptRequest is the body of POST /transcript.
type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	LanguageDetection bool   `json:"language_detection"`
	AutoHighlights    bool   `json:"auto_highlights"`
	IABCategories     bool   `json:"iab_categories"`
	SentimentAnalysis bool   `json:"sentiment_analysis"`
	AutoChapters      bool   `json:"auto_chapters"`
	EntityDetection   bool   `json:"entity_detection"`
}

func newTranscriptRequest(audioURI string, opts stt.Options) transcriptRequest {
	return transcriptRequest{
		AudioURL:          audioURI,
		SpeakerLabels:     opts.SpeakerDetection,
		LanguageDetection: true,
		AutoHighlights:    opts.AudioIntelligence,
		IABCategories:     opts.AudioIntelligence,
		SentimentAnalysis: opts.AudioIntelligence,
		AutoChapters:      opts.AudioIntelligence,
		EntityDetection:   opts.AudioIntelligence,
	}
}

// Submit starts a transcript job and returns its id.
func (c *Client) Submit(ctx context.Context, audioURI string, opts stt.Options) (string, error) {
	body, err := json.Marshal(newTranscriptRequest(audioURI, opts))
	if err != nil {
		return "", fmt.Errorf("encode transcript request: %w", err)
	}

	var out normalize.PollingResponse
	if err := c.do(ctx, "submit", http.MethodPost, "/transcript", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: submit returned no transcript id", stt.ErrUpstream)
	}

	c.log.Info().
		Str("transcriptionId", out.ID).
		Str("status", out.Status).
		Msg("Transcription submitted")
	return out.ID, nil
}

// Poll fetches the transcript resource and resolves it into an outcome.
func (c *Client) Poll(ctx context.Context, jobID string, opts stt.Options) (job.Outcome, error) {
	var out normalize.PollingResponse
	if err := c.do(ctx, "poll", http.MethodGet, "/transcript/"+url.PathEscape(jobID), "", nil, &out); err != nil {
		return job.Outcome{}, err
	}
	if out.ID == "" {
		out.ID = jobID
	}

	c.log.Info().
		Str("transcriptionId", jobID).
		Str("status", out.Status).
		Msg("Job status")

	start := time.Now()
	outcome, err := normalize.ResolvePolling(&out, opts.Features())
	if outcome.State == job.StateSucceeded || err != nil {
		c.metrics.RecordNormalize(Name, err, time.Since(start).Seconds())
	}
	return outcome, err
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordSTTCall(Name, op, err, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("authorization", c.cfg.APIToken)
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", stt.ErrUpstream, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", stt.ErrUpstream, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d: %s", stt.ErrUpstream, op, resp.StatusCode, preview(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", stt.ErrUpstream, op, err)
	}
	return nil
}

func preview(raw []byte) string {
	const limit = 512
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
