// Package stt defines the interfaces for Speech-to-Text providers.
package stt

import (
	"context"
	"errors"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
)

// ErrUpstream is returned when a provider request fails at the transport or HTTP level.
var ErrUpstream = errors.New("stt provider request failed")

// Options are the provider-neutral transcription options.
type Options struct {
	LanguageCode      string
	SpeakerDetection  bool
	AudioIntelligence bool
	Summarize         bool
}

// Features returns the sections a completed response must carry for these options.
func (o Options) Features() normalize.Features {
	return normalize.Features{
		SpeakerDetection:  o.SpeakerDetection,
		AudioIntelligence: o.AudioIntelligence,
		Summarize:         o.Summarize,
	}
}

// Provider is implemented by every STT backend.
type Provider interface {
	// Name identifies the provider in logs, metrics and job ids.
	Name() string
}

// Uploader stores audio somewhere the provider can read it and returns that URI.
type Uploader interface {
	Upload(ctx context.Context, mimeType string, audio []byte) (string, error)
}

// AsyncTranscriber is a provider whose jobs are submitted and then polled
// until they reach a terminal status.
type AsyncTranscriber interface {
	Provider
	Uploader

	// Submit starts a job for the uploaded audio and returns its id.
	Submit(ctx context.Context, audioURI string, opts Options) (string, error)

	// Poll fetches the job status. A completed job is normalized into the outcome's document.
	Poll(ctx context.Context, jobID string, opts Options) (job.Outcome, error)
}

// SyncTranscriber is a provider that returns the full result in one call.
type SyncTranscriber interface {
	Provider

	// Transcribe sends the audio and returns the normalized document.
	Transcribe(ctx context.Context, mimeType string, audio []byte, opts Options) (*models.Document, error)
}
