// Package models defines the block/tag document produced from transcription
// results and the events published about it.
package models

// Kind is the category discriminator of a Tag.
type Kind string

const (
	KindSpeaker      Kind = "speaker"
	KindTimestamp    Kind = "timestamp"
	KindEntity       Kind = "entity"
	KindChapter      Kind = "chapter"
	KindSentiment    Kind = "sentiment"
	KindTopic        Kind = "topic"
	KindTopicSummary Kind = "topic_summary"
)

// Value is the kind-specific payload of a Tag.
// StartTime and EndTime are always serialized; they are null only for
// topic_summary tags. Times are provider-native (milliseconds or seconds).
// Summary, Headline and Gist are set on every chapter tag, even when empty.
type Value struct {
	StartTime  *float64 `json:"start_time"`
	EndTime    *float64 `json:"end_time"`
	Confidence *float64 `json:"confidence,omitempty"`
	Type       string   `json:"type,omitempty"`
	Summary    *string  `json:"summary,omitempty"`
	Headline   *string  `json:"headline,omitempty"`
	Gist       *string  `json:"gist,omitempty"`
}

// Tag is a typed annotation over the half-open rune range [StartIdx, EndIdx)
// of a block's text. StartIdx and EndIdx are nil for unanchored tags.
type Tag struct {
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	StartIdx *int   `json:"start_idx"`
	EndIdx   *int   `json:"end_idx"`
	Value    Value  `json:"value"`
}

// Anchored reports whether the tag is attached to a span of text.
func (t Tag) Anchored() bool {
	return t.StartIdx != nil && t.EndIdx != nil
}

// Span returns the tag's offsets. ok is false for unanchored tags.
func (t Tag) Span() (start, end int, ok bool) {
	if !t.Anchored() {
		return 0, 0, false
	}
	return *t.StartIdx, *t.EndIdx, true
}

// Block is a unit of transcript text with its tags.
type Block struct {
	Text string `json:"text"`
	Tags []Tag  `json:"tags"`
}

// Document is the output of one completed transcription job.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// NewDocument wraps the transcript text and its tags into a single-block document.
func NewDocument(text string, tags []Tag) *Document {
	if tags == nil {
		tags = []Tag{}
	}
	return &Document{Blocks: []Block{{Text: text, Tags: tags}}}
}

// Text returns the transcript text of the first block.
func (d *Document) Text() string {
	if d == nil || len(d.Blocks) == 0 {
		return ""
	}
	return d.Blocks[0].Text
}

// Tags returns the tags of the first block.
func (d *Document) Tags() []Tag {
	if d == nil || len(d.Blocks) == 0 {
		return nil
	}
	return d.Blocks[0].Tags
}

// Float returns a pointer to v, for building Values.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}

// Int returns a pointer to v, for building spans.
func Int(v int) *int {
	return &v
}
