package tagging

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTimeIndex is returned when a time-anchored section is parsed
	// for a response that carried no word-level timestamps.
	ErrNoTimeIndex = errors.New("response has no word-level timestamps")
	// ErrTimeNotIndexed is returned when a referenced time is not a word boundary.
	ErrTimeNotIndexed = errors.New("time offset not found in time index")
)

// TimeIndex maps provider time offsets of word boundaries to rune offsets.
// It is built once per response and only read afterwards.
type TimeIndex map[float64]int

// BuildTimeIndex records the rune offset of every word's start and end time.
// A later word wins when two boundaries share a time value.
// It returns nil when words is nil, meaning the response had no word list.
func BuildTimeIndex(words []Word) TimeIndex {
	if words == nil {
		return nil
	}
	index := make(TimeIndex, 2*len(words))
	for i, span := range Accumulate(wordTexts(words)) {
		index[words[i].Start] = span.Start
		index[words[i].End] = span.End
	}
	return index
}

// Lookup returns the rune offset recorded for t.
func (idx TimeIndex) Lookup(t float64) (int, error) {
	if idx == nil {
		return 0, ErrNoTimeIndex
	}
	offset, ok := idx[t]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrTimeNotIndexed, t)
	}
	return offset, nil
}

// Resolve looks up both ends of a time range.
func (idx TimeIndex) Resolve(start, end float64) (Span, error) {
	s, err := idx.Lookup(start)
	if err != nil {
		return Span{}, fmt.Errorf("start: %w", err)
	}
	e, err := idx.Lookup(end)
	if err != nil {
		return Span{}, fmt.Errorf("end: %w", err)
	}
	return Span{Start: s, End: e}, nil
}

func wordTexts(words []Word) []string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return texts
}
