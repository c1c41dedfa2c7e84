// Package tagging turns sections of a transcription response into tags
// anchored to rune offsets of the transcript text.
//
// Offsets assume the transcript was assembled by joining fragments with a
// single delimiter, in the order the fragments are given.
package tagging

import "unicode/utf8"

// Span is a half-open rune range [Start, End).
type Span struct {
	Start int
	End   int
}

// Accumulate returns the span of each fragment in the delimiter-joined text.
// The cursor advances by the fragment length plus one after every fragment.
func Accumulate(fragments []string) []Span {
	if len(fragments) == 0 {
		return nil
	}
	spans := make([]Span, len(fragments))
	cursor := 0
	for i, f := range fragments {
		n := runeLen(f)
		spans[i] = Span{Start: cursor, End: cursor + n}
		cursor += n + 1
	}
	return spans
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
