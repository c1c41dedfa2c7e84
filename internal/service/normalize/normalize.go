// Package normalize maps provider transcription responses into a
// single-block document by running the tag parsers in a fixed order.
package normalize

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	// ErrUnsupportedMimeType is returned before any upload for media the providers cannot read.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	// ErrMissingSection is returned when a requested feature's section is absent
	// from a completed response.
	ErrMissingSection = errors.New("response section missing")
)

// SupportedMimeTypes lists the audio and video containers accepted for transcription.
var SupportedMimeTypes = []string{
	"audio/mp3",
	"audio/wav",
	"video/mp4",
	"audio/mp4",
	"audio/webm",
	"video/webm",
}

// CheckMimeType returns the media type without parameters if it is supported.
func CheckMimeType(mimeType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	for _, supported := range SupportedMimeTypes {
		if mediaType == supported {
			return mediaType, nil
		}
	}
	return "", fmt.Errorf("%w: %q. The following mime types are supported: %s",
		ErrUnsupportedMimeType, mimeType, strings.Join(SupportedMimeTypes, ", "))
}

// Features records which optional sections were requested from the provider.
// A completed response must carry every section of a requested feature.
type Features struct {
	SpeakerDetection  bool
	AudioIntelligence bool
	Summarize         bool
}

func missing(section string) error {
	return fmt.Errorf("%w: %s", ErrMissingSection, section)
}
