package models

// DocumentCompleted is published when a transcription job produced a document.
type DocumentCompleted struct {
	EventID         string    `json:"eventId"`
	EventType       string    `json:"eventType"`
	TranscriptionID string    `json:"transcriptionId"`
	Provider        string    `json:"provider"`
	Timestamp       int64     `json:"timestamp"`
	TagCount        int       `json:"tagCount"`
	Document        *Document `json:"document"`
}

// JobFailed is published when the provider reported a terminal failure.
type JobFailed struct {
	EventID         string `json:"eventId"`
	EventType       string `json:"eventType"`
	TranscriptionID string `json:"transcriptionId"`
	Provider        string `json:"provider"`
	Timestamp       int64  `json:"timestamp"`
	Reason          string `json:"reason"`
}

const (
	EventDocumentCompleted = "transcription.document.completed"
	EventJobFailed         = "transcription.job.failed"
)
