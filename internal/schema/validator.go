// Package schema checks documents before they leave the service.
package schema

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"ai-speech-blockifier/internal/models"
)

// ErrInvalidDocument is wrapped by every validation failure.
var ErrInvalidDocument = errors.New("invalid document")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks that doc has exactly one block and that every tag is well formed:
// anchored spans lie inside the text, only topic_summary tags are unanchored,
// and every other tag carries start and end times.
func (v *Validator) Validate(doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if len(doc.Blocks) != 1 {
		return fmt.Errorf("%w: expected 1 block, got %d", ErrInvalidDocument, len(doc.Blocks))
	}

	block := doc.Blocks[0]
	if block.Tags == nil {
		return fmt.Errorf("%w: tags must be a list", ErrInvalidDocument)
	}
	textLen := utf8.RuneCountInString(block.Text)

	for i, tag := range block.Tags {
		if err := validateTag(tag, textLen); err != nil {
			return fmt.Errorf("%w: tag %d (%s %q): %v", ErrInvalidDocument, i, tag.Kind, tag.Name, err)
		}
	}
	return nil
}

func validateTag(tag models.Tag, textLen int) error {
	if (tag.StartIdx == nil) != (tag.EndIdx == nil) {
		return errors.New("span has only one end")
	}

	if tag.Kind == models.KindTopicSummary {
		if tag.Anchored() {
			return errors.New("topic_summary must not be anchored")
		}
		if tag.Value.StartTime != nil || tag.Value.EndTime != nil {
			return errors.New("topic_summary must not carry times")
		}
		return nil
	}

	start, end, ok := tag.Span()
	if !ok {
		return errors.New("missing span")
	}
	if start < 0 || start > end || end > textLen {
		return fmt.Errorf("span [%d, %d) outside text of length %d", start, end, textLen)
	}
	if tag.Value.StartTime == nil || tag.Value.EndTime == nil {
		return errors.New("missing start or end time")
	}
	return nil
}
