package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/service/blockify"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
	"ai-speech-blockifier/internal/service/stt"
)

const ongoingMessage = "Transcription job ongoing."

// Blockifier is the part of blockify.Handler the router drives.
type Blockifier interface {
	Provider() string
	Start(ctx context.Context, mimeType string, audio []byte) (job.Outcome, error)
	Check(ctx context.Context, jobID string) (job.Outcome, error)
}

// RouterConfig carries the router's collaborators.
type RouterConfig struct {
	Blockifier    Blockifier
	MaxAudioBytes int64
	// Ready reports readiness; nil means always ready.
	Ready func() bool
}

// StatusRequest is the body of POST /v1/blockify/status.
type StatusRequest struct {
	TranscriptionID string `json:"transcription_id"`
}

// OutcomeResponse is returned by every blockify endpoint.
type OutcomeResponse struct {
	TranscriptionID string           `json:"transcription_id,omitempty"`
	Provider        string           `json:"provider"`
	State           string           `json:"state"`
	Status          string           `json:"status,omitempty"`
	Message         string           `json:"message,omitempty"`
	Document        *models.Document `json:"document,omitempty"`
}

// ErrorResponse is returned for rejected or failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{b: cfg.Blockifier, maxAudioBytes: cfg.MaxAudioBytes}

	// API routes
	r.Route("/v1/blockify", func(r chi.Router) {
		r.Post("/", h.start)
		r.Post("/status", h.status)
		r.Get("/{transcriptionID}", h.get)
	})

	return r
}

type handlers struct {
	b             Blockifier
	maxAudioBytes int64
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxAudioBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes)
	}
	audio, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, blockify.ErrAudioTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := h.b.Start(r.Context(), r.Header.Get("Content-Type"), audio)
	h.respond(w, r, out, err)
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := h.b.Check(r.Context(), req.TranscriptionID)
	h.respond(w, r, out, err)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	out, err := h.b.Check(r.Context(), chi.URLParam(r, "transcriptionID"))
	h.respond(w, r, out, err)
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, out job.Outcome, err error) {
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			log := logging.WithRequest(middleware.GetReqID(r.Context()))
			log.Error().
				Err(err).
				Str("provider", h.b.Provider()).
				Msg("Blockify request failed")
		}
		writeError(w, code, err)
		return
	}

	resp := OutcomeResponse{
		TranscriptionID: out.JobID,
		Provider:        h.b.Provider(),
		State:           out.State.String(),
		Status:          out.Status.String(),
	}
	switch out.State {
	case job.StateRunning:
		resp.Message = ongoingMessage
		writeJSON(w, http.StatusAccepted, resp)
	case job.StateSucceeded:
		resp.Document = out.Document
		writeJSON(w, http.StatusOK, resp)
	default:
		resp.Message = out.Reason
		writeJSON(w, http.StatusBadGateway, resp)
	}
}

// statusFor maps an error onto an HTTP status. Rejected input is 4xx and
// provider failures are 502. Malformed provider data (missing sections,
// unindexed times, unknown statuses, invalid documents) falls through to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, normalize.ErrUnsupportedMimeType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, blockify.ErrMissingJobID):
		return http.StatusBadRequest
	case errors.Is(err, blockify.ErrNoAsyncProvider):
		return http.StatusNotFound
	case errors.Is(err, blockify.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, stt.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logging.WithRequest(middleware.GetReqID(r.Context()))
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("code", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
