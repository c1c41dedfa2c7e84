// Package google provides a Google Cloud Speech-to-Text adapter.
// Recognition results are converted into the synchronous response shape
// and normalized like any other synchronous provider.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const Name = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string
	SampleRateHz    int32
	AudioEncoding   string // LINEAR16, FLAC, MULAW, OGG_OPUS, WEBM_OPUS, ...
	Model           string
	MaxSpeakers     int32
	APIKey          string
	CredentialsFile string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  8000,
		AudioEncoding: "LINEAR16",
		MaxSpeakers:   6,
	}
}

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type speechClient struct {
	c *speech.Client
}

func (s speechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return s.c.Recognize(ctx, req)
}

func (s speechClient) Close() error {
	return s.c.Close()
}

// Adapter implements stt.SyncTranscriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client  recognizer
	config  Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ stt.SyncTranscriber = (*Adapter)(nil)

// New creates a Google STT adapter.
// Without an API key or credentials file, application default credentials are used.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return newAdapter(speechClient{c: c}, cfg, m), nil
}

func newAdapter(client recognizer, cfg Config, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Adapter{
		client:  client,
		config:  cfg,
		metrics: m,
		log:     logging.WithComponent("stt-google"),
	}
}

func (a *Adapter) Name() string {
	return Name
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Transcribe runs a synchronous Recognize call and normalizes the result.
func (a *Adapter) Transcribe(ctx context.Context, mimeType string, audio []byte, opts stt.Options) (*models.Document, error) {
	req := a.buildRequest(mimeType, audio, opts)

	start := time.Now()
	resp, err := a.client.Recognize(ctx, req)
	a.metrics.RecordSTTCall(Name, "transcribe", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: recognize: %v", stt.ErrUpstream, err)
	}

	a.log.Info().
		Int("results", len(resp.GetResults())).
		Str("mimeType", mimeType).
		Msg("Recognition received")

	features := opts.Features()
	// Recognize has no summary output.
	features.Summarize = false

	start = time.Now()
	doc, err := normalize.NormalizeSync(ToSyncResponse(resp, opts.SpeakerDetection), features)
	a.metrics.RecordNormalize(Name, err, time.Since(start).Seconds())
	return doc, err
}

func (a *Adapter) buildRequest(mimeType string, audio []byte, opts stt.Options) *speechpb.RecognizeRequest {
	language := opts.LanguageCode
	if language == "" {
		language = a.config.LanguageCode
	}

	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		Model:                      a.config.Model,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		EnableAutomaticPunctuation: true,
	}

	// WAV headers carry encoding and sample rate.
	switch mimeType {
	case "audio/wav":
	case "audio/webm", "video/webm":
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
	default:
		cfg.Encoding = parseAudioEncoding(a.config.AudioEncoding)
		cfg.SampleRateHertz = a.config.SampleRateHz
	}

	if opts.SpeakerDetection {
		cfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          1,
			MaxSpeakerCount:          a.config.MaxSpeakers,
		}
	}

	return &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// parseAudioEncoding converts a string to the speechpb encoding enum.
// Unknown values fall back to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[encoding]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}

// ToSyncResponse converts a Recognize response into the synchronous shape.
// The transcript is the recognized words joined by single spaces so word and
// utterance spans line up with it. With diarization the last result holds
// every word with its speaker tag, and consecutive words of one speaker
// form an utterance.
func ToSyncResponse(resp *speechpb.RecognizeResponse, diarized bool) *normalize.SyncResponse {
	words := collectWords(resp, diarized)

	texts := make([]string, len(words))
	syncWords := make([]normalize.SyncWord, len(words))
	for i, w := range words {
		texts[i] = w.GetWord()
		confidence := float64(w.GetConfidence())
		syncWords[i] = normalize.SyncWord{
			Word:       w.GetWord(),
			Start:      w.GetStartTime().AsDuration().Seconds(),
			End:        w.GetEndTime().AsDuration().Seconds(),
			Confidence: &confidence,
		}
		if diarized {
			speaker := int(w.GetSpeakerTag())
			syncWords[i].Speaker = &speaker
		}
	}

	results := &normalize.SyncResults{
		Channels: []normalize.SyncChannel{{
			Alternatives: []normalize.SyncAlternative{{
				Transcript: strings.Join(texts, " "),
				Words:      syncWords,
			}},
		}},
	}
	if diarized {
		results.Utterances = groupUtterances(syncWords)
	}
	return &normalize.SyncResponse{Results: results}
}

func collectWords(resp *speechpb.RecognizeResponse, diarized bool) []*speechpb.WordInfo {
	results := resp.GetResults()
	words := []*speechpb.WordInfo{}
	if diarized && len(results) > 0 {
		if alts := results[len(results)-1].GetAlternatives(); len(alts) > 0 {
			words = append(words, alts[0].GetWords()...)
		}
		return words
	}
	for _, r := range results {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			words = append(words, alts[0].GetWords()...)
		}
	}
	return words
}

func groupUtterances(words []normalize.SyncWord) []normalize.SyncUtterance {
	utterances := []normalize.SyncUtterance{}
	var texts []string
	for i, w := range words {
		if i == 0 || *w.Speaker != *words[i-1].Speaker {
			if len(texts) > 0 {
				utterances[len(utterances)-1].Transcript = strings.Join(texts, " ")
			}
			utterances = append(utterances, normalize.SyncUtterance{Speaker: *w.Speaker, Start: w.Start})
			texts = texts[:0]
		}
		texts = append(texts, w.Word)
		utterances[len(utterances)-1].End = w.End
	}
	if len(texts) > 0 {
		utterances[len(utterances)-1].Transcript = strings.Join(texts, " ")
	}
	return utterances
}
