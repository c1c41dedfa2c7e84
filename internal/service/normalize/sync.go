package normalize

import (
	"strconv"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/service/tagging"
)

// SyncResponse is the body returned by a synchronous provider in one shot.
// Times are seconds.
type SyncResponse struct {
	Metadata SyncMetadata `json:"metadata"`
	Results  *SyncResults `json:"results"`
}

// SyncMetadata identifies the request.
type SyncMetadata struct {
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration,omitempty"`
}

// SyncResults holds the recognized channels, the diarized utterances and,
// when summarize=v2 was requested, the request level summary.
type SyncResults struct {
	Channels   []SyncChannel      `json:"channels"`
	Utterances []SyncUtterance    `json:"utterances"`
	Summary    *SyncResultSummary `json:"summary,omitempty"`
}

// SyncResultSummary is the summarize=v2 result. Result is "success" when Short is set.
type SyncResultSummary struct {
	Result string `json:"result"`
	Short  string `json:"short"`
}

// SyncChannel is one audio channel.
type SyncChannel struct {
	Alternatives []SyncAlternative `json:"alternatives"`
}

// SyncAlternative is one transcription of a channel. Summaries is the summarize=v1 shape.
type SyncAlternative struct {
	Transcript string        `json:"transcript"`
	Confidence float64       `json:"confidence,omitempty"`
	Words      []SyncWord    `json:"words"`
	Summaries  []SyncSummary `json:"summaries,omitempty"`
}

// SyncWord is one recognized word with its timing.
type SyncWord struct {
	Word           string   `json:"word"`
	PunctuatedWord string   `json:"punctuated_word,omitempty"`
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Speaker        *int     `json:"speaker,omitempty"`
}

// SyncUtterance is a contiguous stretch of one speaker.
type SyncUtterance struct {
	Speaker    int     `json:"speaker"`
	Transcript string  `json:"transcript"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SyncSummary is a summarize=v1 entry.
type SyncSummary struct {
	Summary   string `json:"summary"`
	StartWord int    `json:"start_word"`
	EndWord   int    `json:"end_word"`
}

// NormalizeSync builds the document of a synchronous response.
// Parser order: timestamp, speaker, topic_summary.
func NormalizeSync(resp *SyncResponse, f Features) (*models.Document, error) {
	alt := resp.bestAlternative()
	if alt == nil {
		return nil, missing("results.channels[0].alternatives[0]")
	}
	if f.SpeakerDetection && resp.Results.Utterances == nil {
		return nil, missing("results.utterances")
	}
	summary := resp.summary(alt)
	if f.Summarize && summary == nil {
		return nil, missing("results.summary.short")
	}

	timestamps, _ := tagging.ParseTimestamps(alt.words())
	tags := timestamps
	tags = append(tags, tagging.ParseSpeakers(resp.utterances())...)
	tags = append(tags, tagging.ParseTopicSummary(summary)...)

	return models.NewDocument(alt.Transcript, tags), nil
}

func (r *SyncResponse) bestAlternative() *SyncAlternative {
	if r.Results == nil || len(r.Results.Channels) == 0 {
		return nil
	}
	alts := r.Results.Channels[0].Alternatives
	if len(alts) == 0 {
		return nil
	}
	return &alts[0]
}

func (r *SyncResponse) utterances() []tagging.Utterance {
	out := make([]tagging.Utterance, len(r.Results.Utterances))
	for i, u := range r.Results.Utterances {
		out[i] = tagging.Utterance{
			Speaker: strconv.Itoa(u.Speaker),
			Text:    u.Transcript,
			Start:   u.Start,
			End:     u.End,
		}
	}
	return out
}

// summary reads the v2 summary, falling back to the v1 one on the alternative.
func (r *SyncResponse) summary(a *SyncAlternative) *string {
	if s := r.Results.Summary; s != nil && s.Short != "" {
		short := s.Short
		return &short
	}
	if len(a.Summaries) == 0 {
		return nil
	}
	s := a.Summaries[0].Summary
	return &s
}

// words prefers the punctuated form so the spans line up with a punctuated transcript.
func (a *SyncAlternative) words() []tagging.Word {
	if a.Words == nil {
		return nil
	}
	out := make([]tagging.Word, len(a.Words))
	for i, w := range a.Words {
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		out[i] = tagging.Word{Text: text, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}
	return out
}
