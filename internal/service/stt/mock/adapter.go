// Package mock provides a mock polling STT provider for running without cloud credentials.
// Jobs report queued, then processing, then completed over successive polls, and
// the completed transcript is built deterministically from simulated utterances.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const Name = "mock"

// EmptyAudioReason is the failure reason reported for jobs submitted with no audio.
const EmptyAudioReason = "audio contains no speech"

// SimulatedEntity marks Words consecutive words starting at Word as an entity.
type SimulatedEntity struct {
	Type  string
	Word  int
	Words int
}

// SimulatedUtterance represents one speaker turn of the canned transcript.
type SimulatedUtterance struct {
	Speaker    string
	Text       string
	Sentiment  string
	Confidence float64
	Topics     []normalize.IABLabel
	Entities   []SimulatedEntity
}

// DefaultUtterances provides the sample conversation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Speaker:    "A",
		Text:       "I want to cancel my subscription",
		Sentiment:  "NEGATIVE",
		Confidence: 0.94,
		Topics:     []normalize.IABLabel{{Relevance: 0.81, Label: "Business>Subscriptions"}},
		Entities:   []SimulatedEntity{{Type: "product", Word: 5, Words: 1}},
	},
	{
		Speaker:    "B",
		Text:       "Can you help me with my account",
		Sentiment:  "NEUTRAL",
		Confidence: 0.91,
		Topics: []normalize.IABLabel{
			{Relevance: 0.62, Label: "Technology&Computing"},
			{Relevance: 0.2, Label: "Business"},
		},
	},
	{
		Speaker:    "A",
		Text:       "I've been waiting for over an hour",
		Sentiment:  "NEGATIVE",
		Confidence: 0.89,
		Topics:     []normalize.IABLabel{{Relevance: 0.44, Label: "Customer Service"}},
		Entities:   []SimulatedEntity{{Type: "duration", Word: 5, Words: 2}},
	},
	{
		Speaker:    "B",
		Text:       "Thank you very much",
		Sentiment:  "POSITIVE",
		Confidence: 0.98,
	},
}

// Timing of the simulated audio in milliseconds.
const (
	wordDuration   = 300
	wordGap        = 100
	utteranceGap   = 400
	defaultPolls   = 2
	wordConfidence = 0.9
)

// Config controls the simulation.
type Config struct {
	// PollsBeforeComplete is the number of polls that report a running status
	// before the job completes.
	PollsBeforeComplete int
	Utterances          []SimulatedUtterance
}

// DefaultConfig returns the default simulation.
func DefaultConfig() Config {
	return Config{PollsBeforeComplete: defaultPolls, Utterances: DefaultUtterances}
}

type mockJob struct {
	polls int
	empty bool
}

// Provider implements stt.AsyncTranscriber with simulated jobs.
type Provider struct {
	cfg     Config
	ids     *job.Generator
	mu      sync.Mutex
	uploads map[string]int
	jobs    map[string]*mockJob
}

var _ stt.AsyncTranscriber = (*Provider)(nil)

// New creates a mock provider.
func New(cfg Config) *Provider {
	if cfg.Utterances == nil {
		cfg.Utterances = DefaultUtterances
	}
	return &Provider{
		cfg:     cfg,
		ids:     job.NewGenerator(),
		uploads: make(map[string]int),
		jobs:    make(map[string]*mockJob),
	}
}

func (p *Provider) Name() string {
	return Name
}

// Upload records the audio size and returns a mock URI.
func (p *Provider) Upload(ctx context.Context, mimeType string, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format := mimeType[strings.LastIndex(mimeType, "/")+1:]

	p.mu.Lock()
	defer p.mu.Unlock()
	uri := fmt.Sprintf("mock://uploads/%d.%s", len(p.uploads)+1, format)
	p.uploads[uri] = len(audio)
	return uri, nil
}

// Submit starts a simulated job for a previously uploaded URI.
func (p *Provider) Submit(ctx context.Context, audioURI string, opts stt.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	size, ok := p.uploads[audioURI]
	if !ok {
		return "", fmt.Errorf("%w: unknown audio uri %s", stt.ErrUpstream, audioURI)
	}
	id := p.ids.Next(Name)
	p.jobs[id] = &mockJob{empty: size == 0}
	return id, nil
}

// Poll advances the simulated job by one step.
func (p *Provider) Poll(ctx context.Context, jobID string, opts stt.Options) (job.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return job.Outcome{}, err
	}

	p.mu.Lock()
	j, ok := p.jobs[jobID]
	if !ok {
		p.mu.Unlock()
		return job.Outcome{}, fmt.Errorf("%w: transcript %s not found", stt.ErrUpstream, jobID)
	}
	step := j.polls
	j.polls++
	empty := j.empty
	p.mu.Unlock()

	resp := &normalize.PollingResponse{ID: jobID}
	switch {
	case step < p.cfg.PollsBeforeComplete/2:
		resp.Status = "queued"
	case step < p.cfg.PollsBeforeComplete:
		resp.Status = "processing"
	case empty:
		resp.Status = "error"
		resp.Error = EmptyAudioReason
	default:
		resp = BuildResponse(jobID, p.cfg.Utterances, opts)
	}
	return normalize.ResolvePolling(resp, opts.Features())
}

// BuildResponse renders utterances as a completed polling response. Sections
// are present only when opts requests them.
func BuildResponse(jobID string, utterances []SimulatedUtterance, opts stt.Options) *normalize.PollingResponse {
	resp := &normalize.PollingResponse{
		ID:           jobID,
		Status:       "completed",
		LanguageCode: "en_us",
		Words:        []normalize.PollingWord{},
	}

	var (
		texts      []string
		utts       = []normalize.PollingUtterance{}
		entities   = []normalize.PollingEntity{}
		sentiments = []normalize.PollingSentiment{}
		topics     = []normalize.IABResult{}
		clock      float64
	)

	for _, u := range utterances {
		words := strings.Fields(u.Text)
		if len(words) == 0 {
			continue
		}
		first := len(resp.Words)
		for _, w := range words {
			confidence := wordConfidence
			resp.Words = append(resp.Words, normalize.PollingWord{
				Text:       w,
				Start:      clock,
				End:        clock + wordDuration,
				Confidence: &confidence,
			})
			clock += wordDuration + wordGap
		}
		clock += utteranceGap
		turn := resp.Words[first:]
		text := strings.Join(words, " ")
		texts = append(texts, text)
		start, end := turn[0].Start, turn[len(turn)-1].End

		utts = append(utts, normalize.PollingUtterance{Speaker: u.Speaker, Text: text, Start: start, End: end})
		sentiments = append(sentiments, normalize.PollingSentiment{
			Text: text, Sentiment: u.Sentiment, Confidence: u.Confidence, Start: start, End: end,
		})
		topics = append(topics, normalize.IABResult{
			Text:      text,
			Labels:    append([]normalize.IABLabel{}, u.Topics...),
			Timestamp: normalize.IABTimestamp{Start: start, End: end},
		})
		for _, e := range u.Entities {
			if e.Words <= 0 || e.Word < 0 || e.Word+e.Words > len(turn) {
				continue
			}
			span := turn[e.Word : e.Word+e.Words]
			entities = append(entities, normalize.PollingEntity{
				EntityType: e.Type,
				Text:       strings.Join(words[e.Word:e.Word+e.Words], " "),
				Start:      span[0].Start,
				End:        span[len(span)-1].End,
			})
		}
	}
	resp.Text = strings.Join(texts, " ")

	if opts.SpeakerDetection {
		resp.Utterances = utts
	}
	if opts.AudioIntelligence {
		resp.Entities = entities
		resp.SentimentAnalysisResults = sentiments
		resp.IABCategoriesResult = &normalize.IABCategoriesResult{Status: "success", Results: topics}
		resp.Chapters = []normalize.PollingChapter{}
		if n := len(resp.Words); n > 0 {
			resp.Chapters = append(resp.Chapters, normalize.PollingChapter{
				Summary:  "The caller asks for help with a subscription.",
				Headline: "Subscription support call",
				Gist:     "Subscription support",
				Start:    resp.Words[0].Start,
				End:      resp.Words[n-1].End,
			})
		}
	}
	return resp
}
