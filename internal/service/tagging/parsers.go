package tagging

import (
	"fmt"
	"strconv"

	"ai-speech-blockifier/internal/models"
)

// Every parser returns no tags when its section is empty or absent.

// ParseTimestamps emits one tag per word and the time index built from the
// same words.
func ParseTimestamps(words []Word) ([]models.Tag, TimeIndex) {
	index := BuildTimeIndex(words)
	if len(words) == 0 {
		return nil, index
	}
	spans := Accumulate(wordTexts(words))
	tags := make([]models.Tag, 0, len(words))
	for i, w := range words {
		v := timed(w.Start, w.End)
		v.Confidence = w.Confidence
		tags = append(tags, anchored(models.KindTimestamp, w.Text, spans[i], v))
	}
	return tags, index
}

// ParseSpeakers emits one tag per utterance named after its speaker.
func ParseSpeakers(utterances []Utterance) []models.Tag {
	if len(utterances) == 0 {
		return nil
	}
	texts := make([]string, len(utterances))
	for i, u := range utterances {
		texts[i] = u.Text
	}
	spans := Accumulate(texts)
	tags := make([]models.Tag, 0, len(utterances))
	for i, u := range utterances {
		tags = append(tags, anchored(models.KindSpeaker, u.Speaker, spans[i], timed(u.Start, u.End)))
	}
	return tags
}

// ParseEntities anchors each entity through the time index.
// It fails when the response had no word list or an entity boundary is not
// a word boundary.
func ParseEntities(entities []Entity, index TimeIndex) ([]models.Tag, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if index == nil {
		return nil, fmt.Errorf("entities: %w", ErrNoTimeIndex)
	}
	tags := make([]models.Tag, 0, len(entities))
	for i, e := range entities {
		span, err := index.Resolve(e.Start, e.End)
		if err != nil {
			return nil, fmt.Errorf("entity %d %q: %w", i, e.Text, err)
		}
		v := timed(e.Start, e.End)
		v.Type = e.Type
		tags = append(tags, anchored(models.KindEntity, e.Text, span, v))
	}
	return tags, nil
}

// ParseChapters anchors each chapter through the time index. Tags are named
// by the chapter's position.
func ParseChapters(chapters []Chapter, index TimeIndex) ([]models.Tag, error) {
	if len(chapters) == 0 {
		return nil, nil
	}
	if index == nil {
		return nil, fmt.Errorf("chapters: %w", ErrNoTimeIndex)
	}
	tags := make([]models.Tag, 0, len(chapters))
	for i, c := range chapters {
		span, err := index.Resolve(c.Start, c.End)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i, err)
		}
		v := timed(c.Start, c.End)
		v.Summary = models.String(c.Summary)
		v.Headline = models.String(c.Headline)
		v.Gist = models.String(c.Gist)
		tags = append(tags, anchored(models.KindChapter, strconv.Itoa(i), span, v))
	}
	return tags, nil
}

// ParseSentiments emits one tag per sentiment span named by its polarity.
func ParseSentiments(sentiments []Sentiment) []models.Tag {
	if len(sentiments) == 0 {
		return nil
	}
	texts := make([]string, len(sentiments))
	for i, s := range sentiments {
		texts[i] = s.Text
	}
	spans := Accumulate(texts)
	tags := make([]models.Tag, 0, len(sentiments))
	for i, s := range sentiments {
		v := timed(s.Start, s.End)
		v.Confidence = models.Float(s.Confidence)
		tags = append(tags, anchored(models.KindSentiment, s.Polarity, spans[i], v))
	}
	return tags
}

// ParseTopics emits one tag per (fragment, label) pair. All labels of a
// fragment share the fragment's span.
func ParseTopics(fragments []TopicFragment) []models.Tag {
	if len(fragments) == 0 {
		return nil
	}
	texts := make([]string, len(fragments))
	n := 0
	for i, f := range fragments {
		texts[i] = f.Text
		n += len(f.Labels)
	}
	spans := Accumulate(texts)
	tags := make([]models.Tag, 0, n)
	for i, f := range fragments {
		for _, l := range f.Labels {
			v := timed(f.Start, f.End)
			v.Confidence = models.Float(l.Relevance)
			tags = append(tags, anchored(models.KindTopic, l.Label, spans[i], v))
		}
	}
	return tags
}

// ParseTopicSummary emits a single unanchored tag for summary, or nothing
// when summary is nil.
func ParseTopicSummary(summary *string) []models.Tag {
	if summary == nil {
		return nil
	}
	return []models.Tag{{
		Kind:  models.KindTopicSummary,
		Name:  *summary,
		Value: models.Value{},
	}}
}

func timed(start, end float64) models.Value {
	return models.Value{StartTime: models.Float(start), EndTime: models.Float(end)}
}

func anchored(kind models.Kind, name string, span Span, v models.Value) models.Tag {
	return models.Tag{
		Kind:     kind,
		Name:     name,
		StartIdx: models.Int(span.Start),
		EndIdx:   models.Int(span.End),
		Value:    v,
	}
}
