// Package blockify provides the handler that drives a transcription job from
// submitted audio to a validated, published document.
//
// For polling providers a job is started once and then checked until the
// provider reports a terminal status. Synchronous providers finish in Start.
package blockify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

var (
	// ErrMissingJobID is returned by Check when no job id was given.
	ErrMissingJobID = errors.New("status check requests need to provide a valid job id")
	// ErrNoAsyncProvider is returned by Check when the provider is synchronous.
	ErrNoAsyncProvider = errors.New("provider does not support status checks")
	// ErrAudioTooLarge is returned when the audio exceeds Limits.MaxAudioBytes.
	ErrAudioTooLarge = errors.New("audio exceeds size limit")
	// ErrUnsupportedProvider is returned by New for a provider that is neither synchronous nor asynchronous.
	ErrUnsupportedProvider = errors.New("provider implements neither async nor sync transcription")
)

// Limits guard the size of accepted audio.
type Limits struct {
	MaxAudioBytes int64
}

// DefaultLimits returns a 100MB audio limit.
func DefaultLimits() Limits {
	return Limits{MaxAudioBytes: 100 * 1024 * 1024}
}

// Publisher receives terminal outcomes.
type Publisher interface {
	PublishDocument(ctx context.Context, provider, transcriptionID string, doc *models.Document) error
	PublishFailure(ctx context.Context, provider, transcriptionID, reason string) error
}

// DocumentValidator checks a document before it is returned or published.
type DocumentValidator interface {
	Validate(doc *models.Document) error
}

// Config holds the handler's collaborators.
type Config struct {
	Options   stt.Options
	Limits    Limits
	Validator DocumentValidator
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Handler coordinates one provider with validation, metrics and publishing.
// Thread-safe for concurrent requests.
type Handler struct {
	name      string
	async     stt.AsyncTranscriber
	sync      stt.SyncTranscriber
	opts      stt.Options
	limits    Limits
	registry  *job.Registry
	ids       *job.Generator
	validator DocumentValidator
	publisher Publisher
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// New creates a handler for provider, which must implement
// stt.AsyncTranscriber or stt.SyncTranscriber.
func New(provider stt.Provider, cfg Config) (*Handler, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	h := &Handler{
		name:      provider.Name(),
		opts:      cfg.Options,
		limits:    cfg.Limits,
		registry:  job.NewRegistry(),
		ids:       job.NewGenerator(),
		validator: cfg.Validator,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		log:       logging.WithComponent("blockify"),
	}

	switch p := provider.(type) {
	case stt.AsyncTranscriber:
		h.async = p
	case stt.SyncTranscriber:
		h.sync = p
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider.Name())
	}
	return h, nil
}

// Provider returns the provider name.
func (h *Handler) Provider() string {
	return h.name
}

// SupportsStatusCheck reports whether jobs of this provider are polled.
func (h *Handler) SupportsStatusCheck() bool {
	return h.async != nil
}

// InFlight returns the number of tracked jobs that have not finished.
func (h *Handler) InFlight() int {
	return h.registry.Len()
}

// Start admits the audio and starts a job. Polling providers get one
// immediate status check, so a short job may already be finished.
func (h *Handler) Start(ctx context.Context, mimeType string, audio []byte) (job.Outcome, error) {
	mediaType, err := normalize.CheckMimeType(mimeType)
	if err != nil {
		h.metrics.RecordMimeRejected(mimeType)
		h.log.Warn().Str("mimeType", mimeType).Msg("Unsupported mime type")
		return job.Outcome{}, err
	}
	if h.limits.MaxAudioBytes > 0 && int64(len(audio)) > h.limits.MaxAudioBytes {
		return job.Outcome{}, fmt.Errorf("%w: %d > %d bytes", ErrAudioTooLarge, len(audio), h.limits.MaxAudioBytes)
	}

	if h.sync != nil {
		return h.transcribe(ctx, mediaType, audio)
	}

	uri, err := h.async.Upload(ctx, mediaType, audio)
	if err != nil {
		return job.Outcome{}, fmt.Errorf("upload audio: %w", err)
	}
	h.metrics.RecordUpload(len(audio))

	jobID, err := h.async.Submit(ctx, uri, h.opts)
	if err != nil {
		return job.Outcome{}, fmt.Errorf("submit transcription: %w", err)
	}
	h.registry.Track(jobID)
	h.metrics.RecordSubmitted(h.name)

	log := logging.WithJob(jobID, h.name)
	log.Info().
		Str("mimeType", mediaType).
		Int("bytes", len(audio)).
		Msg("Transcription started")

	return h.Check(ctx, jobID)
}

// Check polls the provider for jobID and finishes the job once it is terminal.
func (h *Handler) Check(ctx context.Context, jobID string) (job.Outcome, error) {
	if jobID == "" {
		return job.Outcome{}, ErrMissingJobID
	}
	if h.async == nil {
		return job.Outcome{}, fmt.Errorf("%w: %s", ErrNoAsyncProvider, h.name)
	}
	log := logging.WithJob(jobID, h.name)

	out, err := h.async.Poll(ctx, jobID, h.opts)
	if err != nil {
		log.Error().Err(err).Msg("Status check failed")
		return job.Outcome{}, err
	}
	h.metrics.RecordStatusCheck(h.name, out.Status.String())

	if h.registry.Finished(jobID) {
		return h.repeat(out)
	}

	lc, known := h.registry.Get(jobID)
	if !known {
		lc = h.registry.Track(jobID)
	}
	if err := lc.Observe(out.Status); err != nil {
		log.Error().Err(err).Msg("Provider reported an illegal status change")
		return job.Outcome{}, err
	}

	if out.State == job.StateRunning {
		log.Debug().Str("status", out.Status.String()).Msg("Transcription job ongoing")
		return out, nil
	}

	h.registry.Finish(jobID)
	return h.finish(ctx, out, known)
}

// repeat answers a status check for a job that was already finished.
// The outcome is returned again without being counted or published.
func (h *Handler) repeat(out job.Outcome) (job.Outcome, error) {
	log := logging.WithJob(out.JobID, h.name)
	if out.State == job.StateSucceeded && h.validator != nil {
		if err := h.validator.Validate(out.Document); err != nil {
			log.Error().Err(err).Msg("Document failed validation")
			return job.Outcome{}, err
		}
	}
	log.Debug().Str("state", out.State.String()).Msg("Job already finished")
	return out, nil
}

func (h *Handler) transcribe(ctx context.Context, mimeType string, audio []byte) (job.Outcome, error) {
	jobID := h.ids.Next(h.name)
	h.metrics.RecordSubmitted(h.name)
	h.metrics.RecordUpload(len(audio))

	start := time.Now()
	doc, err := h.sync.Transcribe(ctx, mimeType, audio, h.opts)
	if err != nil {
		h.metrics.RecordOutcome(h.name, "error", true)
		log := logging.WithJob(jobID, h.name)
		log.Error().Err(err).Msg("Transcription failed")
		return job.Outcome{}, err
	}

	log := logging.WithJob(jobID, h.name)
	log.Debug().
		Dur("elapsed", time.Since(start)).
		Msg("Transcription returned")
	return h.finish(ctx, job.Succeeded(jobID, doc), true)
}

// finish validates, counts and publishes a terminal outcome.
func (h *Handler) finish(ctx context.Context, out job.Outcome, inFlight bool) (job.Outcome, error) {
	log := logging.WithJob(out.JobID, h.name)
	pubCtx := context.WithoutCancel(ctx)

	if out.State == job.StateFailed {
		h.metrics.RecordOutcome(h.name, out.State.String(), inFlight)
		log.Warn().Str("reason", out.Reason).Msg("Transcription was unsuccessful")
		if h.publisher != nil {
			if err := h.publisher.PublishFailure(pubCtx, h.name, out.JobID, out.Reason); err != nil {
				log.Error().Err(err).Msg("Failed to publish job failure")
			}
		}
		return out, nil
	}

	if h.validator != nil {
		if err := h.validator.Validate(out.Document); err != nil {
			h.metrics.RecordInvalidDocument()
			h.metrics.RecordOutcome(h.name, "error", inFlight)
			log.Error().Err(err).Msg("Document failed validation")
			return job.Outcome{}, err
		}
	}

	counts := make(map[string]int)
	for _, tag := range out.Document.Tags() {
		counts[string(tag.Kind)]++
	}
	h.metrics.RecordTags(counts)
	h.metrics.RecordOutcome(h.name, out.State.String(), inFlight)

	log.Info().
		Int("tagCount", len(out.Document.Tags())).
		Int("textLength", len(out.Document.Text())).
		Msg("Transcription completed")

	if h.publisher != nil {
		if err := h.publisher.PublishDocument(pubCtx, h.name, out.JobID, out.Document); err != nil {
			log.Error().Err(err).Msg("Failed to publish document")
		}
	}
	return out, nil
}
