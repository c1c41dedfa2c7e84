// Package deepgram provides the synchronous transcription provider.
package deepgram

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

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const Name = "deepgram"

// Config holds client configuration.
type Config struct {
	BaseURL  string
	APIToken string
	Model    string
	Timeout  time.Duration
}

// DefaultConfig returns the public API endpoint and the nova-2 model.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.deepgram.com/v1",
		Model:   "nova-2",
		Timeout: 2 * time.Minute,
	}
}

// Client implements stt.SyncTranscriber.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ stt.SyncTranscriber = (*Client)(nil)

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
		log:     logging.WithComponent("stt-deepgram"),
	}
}

func (c *Client) Name() string {
	return Name
}

// query builds the listen parameters for opts.
func (c *Client) query(opts stt.Options) url.Values {
	q := url.Values{}
	q.Set("punctuate", "true")
	if c.cfg.Model != "" {
		q.Set("model", c.cfg.Model)
	}
	if opts.LanguageCode != "" {
		q.Set("language", opts.LanguageCode)
	}
	if opts.SpeakerDetection {
		q.Set("diarize", "true")
		q.Set("utterances", "true")
	}
	if opts.Summarize {
		q.Set("summarize", "v2")
	}
	return q
}

// Transcribe posts the raw audio to /listen and normalizes the response.
func (c *Client) Transcribe(ctx context.Context, mimeType string, audio []byte, opts stt.Options) (*models.Document, error) {
	resp, err := c.listen(ctx, mimeType, audio, opts)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("requestId", resp.Metadata.RequestID).
		Float64("duration", resp.Metadata.Duration).
		Msg("Transcription received")

	start := time.Now()
	doc, err := normalize.NormalizeSync(resp, opts.Features())
	c.metrics.RecordNormalize(Name, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", resp.Metadata.RequestID, err)
	}
	return doc, nil
}

func (c *Client) listen(ctx context.Context, mimeType string, audio []byte, opts stt.Options) (out *normalize.SyncResponse, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordSTTCall(Name, "transcribe", err, time.Since(start).Seconds())
	}()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/listen?" + c.query(opts).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("create listen request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIToken)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: listen: %v", stt.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read listen response: %v", stt.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: listen returned status %d: %s", stt.ErrUpstream, resp.StatusCode, raw)
	}

	var decoded normalize.SyncResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode listen response: %v", stt.ErrUpstream, err)
	}
	return &decoded, nil
}
