package normalize

import (
	"fmt"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/tagging"
)

// PollingResponse is the transcript resource of the polling provider.
// Times are milliseconds. A nil slice means the section was absent or null.
type PollingResponse struct {
	ID                       string               `json:"id"`
	Status                   string               `json:"status"`
	Error                    string               `json:"error,omitempty"`
	Text                     string               `json:"text"`
	LanguageCode             string               `json:"language_code,omitempty"`
	Words                    []PollingWord        `json:"words"`
	Utterances               []PollingUtterance   `json:"utterances"`
	Entities                 []PollingEntity      `json:"entities"`
	Chapters                 []PollingChapter     `json:"chapters"`
	SentimentAnalysisResults []PollingSentiment   `json:"sentiment_analysis_results"`
	IABCategoriesResult      *IABCategoriesResult `json:"iab_categories_result"`
}

// PollingWord is one recognized word.
type PollingWord struct {
	Text       string   `json:"text"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// PollingUtterance is a contiguous stretch of one speaker.
type PollingUtterance struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// PollingEntity is a detected named entity.
type PollingEntity struct {
	EntityType string  `json:"entity_type"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// PollingChapter is one auto-generated chapter.
type PollingChapter struct {
	Summary  string  `json:"summary"`
	Headline string  `json:"headline"`
	Gist     string  `json:"gist"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// PollingSentiment is the sentiment of one sentence.
type PollingSentiment struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// IABCategoriesResult holds topic detection output.
type IABCategoriesResult struct {
	Status  string             `json:"status"`
	Results []IABResult        `json:"results"`
	Summary map[string]float64 `json:"summary,omitempty"`
}

// IABResult is one text span with its topic labels.
type IABResult struct {
	Text      string       `json:"text"`
	Labels    []IABLabel   `json:"labels"`
	Timestamp IABTimestamp `json:"timestamp"`
}

// IABLabel is a topic label with its relevance.
type IABLabel struct {
	Relevance float64 `json:"relevance"`
	Label     string  `json:"label"`
}

// IABTimestamp is the time range of an IABResult.
type IABTimestamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

const defaultFailureReason = "Transcription was unsuccessful. Please check the provider for an error message."

// ResolvePolling translates the provider status into an outcome, normalizing
// the response once it is completed.
func ResolvePolling(resp *PollingResponse, f Features) (job.Outcome, error) {
	status, err := job.ParseStatus(resp.Status)
	if err != nil {
		return job.Outcome{}, fmt.Errorf("transcription %s: %w", resp.ID, err)
	}

	switch status {
	case job.StatusCompleted:
		doc, err := NormalizePolling(resp, f)
		if err != nil {
			return job.Outcome{}, fmt.Errorf("transcription %s: %w", resp.ID, err)
		}
		return job.Succeeded(resp.ID, doc), nil
	case job.StatusFailed:
		reason := resp.Error
		if reason == "" {
			reason = defaultFailureReason
		}
		return job.Failed(resp.ID, reason), nil
	default:
		return job.Running(resp.ID, status), nil
	}
}

// NormalizePolling builds the document of a completed polling response.
// Parser order: timestamp, speaker, topic, sentiment, chapter, entity.
func NormalizePolling(resp *PollingResponse, f Features) (*models.Document, error) {
	if err := resp.checkSections(f); err != nil {
		return nil, err
	}

	timestamps, index := tagging.ParseTimestamps(resp.words())
	tags := timestamps
	tags = append(tags, tagging.ParseSpeakers(resp.utterances())...)
	tags = append(tags, tagging.ParseTopics(resp.topics())...)
	tags = append(tags, tagging.ParseSentiments(resp.sentiments())...)

	chapters, err := tagging.ParseChapters(resp.chapters(), index)
	if err != nil {
		return nil, err
	}
	tags = append(tags, chapters...)

	entities, err := tagging.ParseEntities(resp.entities(), index)
	if err != nil {
		return nil, err
	}
	tags = append(tags, entities...)

	return models.NewDocument(resp.Text, tags), nil
}

func (r *PollingResponse) checkSections(f Features) error {
	if f.SpeakerDetection && r.Utterances == nil {
		return missing("utterances")
	}
	if !f.AudioIntelligence {
		return nil
	}
	switch {
	case r.Entities == nil:
		return missing("entities")
	case r.Chapters == nil:
		return missing("chapters")
	case r.SentimentAnalysisResults == nil:
		return missing("sentiment_analysis_results")
	case r.IABCategoriesResult == nil || r.IABCategoriesResult.Results == nil:
		return missing("iab_categories_result.results")
	}
	return nil
}

func (r *PollingResponse) words() []tagging.Word {
	if r.Words == nil {
		return nil
	}
	out := make([]tagging.Word, len(r.Words))
	for i, w := range r.Words {
		out[i] = tagging.Word{Text: w.Text, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}
	return out
}

func (r *PollingResponse) utterances() []tagging.Utterance {
	out := make([]tagging.Utterance, len(r.Utterances))
	for i, u := range r.Utterances {
		out[i] = tagging.Utterance{Speaker: u.Speaker, Text: u.Text, Start: u.Start, End: u.End}
	}
	return out
}

func (r *PollingResponse) entities() []tagging.Entity {
	out := make([]tagging.Entity, len(r.Entities))
	for i, e := range r.Entities {
		out[i] = tagging.Entity{Type: e.EntityType, Text: e.Text, Start: e.Start, End: e.End}
	}
	return out
}

func (r *PollingResponse) chapters() []tagging.Chapter {
	out := make([]tagging.Chapter, len(r.Chapters))
	for i, c := range r.Chapters {
		out[i] = tagging.Chapter{Summary: c.Summary, Headline: c.Headline, Gist: c.Gist, Start: c.Start, End: c.End}
	}
	return out
}

func (r *PollingResponse) sentiments() []tagging.Sentiment {
	out := make([]tagging.Sentiment, len(r.SentimentAnalysisResults))
	for i, s := range r.SentimentAnalysisResults {
		out[i] = tagging.Sentiment{Text: s.Text, Polarity: s.Sentiment, Confidence: s.Confidence, Start: s.Start, End: s.End}
	}
	return out
}

func (r *PollingResponse) topics() []tagging.TopicFragment {
	if r.IABCategoriesResult == nil {
		return nil
	}
	results := r.IABCategoriesResult.Results
	out := make([]tagging.TopicFragment, len(results))
	for i, res := range results {
		labels := make([]tagging.TopicLabel, len(res.Labels))
		for j, l := range res.Labels {
			labels[j] = tagging.TopicLabel{Label: l.Label, Relevance: l.Relevance}
		}
		out[i] = tagging.TopicFragment{Text: res.Text, Labels: labels, Start: res.Timestamp.Start, End: res.Timestamp.End}
	}
	return out
}
