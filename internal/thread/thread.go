// Package thread splits generated text into post-sized segments.
//
// A text that fits the policy is kept as a single post. Longer text is packed
// sentence by sentence into segments that never exceed the hard limit, and
// every segment after the first carries an "n/total" position prefix.
package thread

import (
	"errors"
	"fmt"

	"github.com/rivo/uniseg"
)

const (
	// DefaultHardLimit is the maximum length of a single post on X.
	DefaultHardLimit = 280

	// DefaultSoftLimit is the length up to which text is kept as one post.
	DefaultSoftLimit = 500

	// estimateMargin is the per-segment allowance reserved for the prefix
	// when estimating how many segments a text needs.
	estimateMargin = 10
)

// ErrIndexOutOfRange is returned when a segment index does not exist.
var ErrIndexOutOfRange = errors.New("segment index out of range")

// Policy controls when and how text is split.
type Policy struct {
	// HardLimit is the absolute maximum length of any emitted segment,
	// including its prefix.
	HardLimit int

	// SoftLimit keeps text of at most this length as a single segment even
	// when it exceeds HardLimit. Zero means "same as HardLimit".
	SoftLimit int
}

// DefaultPolicy returns the 280/500 policy.
func DefaultPolicy() Policy {
	return Policy{
		HardLimit: DefaultHardLimit,
		SoftLimit: DefaultSoftLimit,
	}
}

// Normalize substitutes defaults for invalid values.
func (p Policy) Normalize() Policy {
	if p.HardLimit <= 0 {
		p.HardLimit = DefaultHardLimit
	}
	if p.SoftLimit < p.HardLimit {
		p.SoftLimit = p.HardLimit
	}
	return p
}

// Segment is one post of a thread.
type Segment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// CharCount returns the segment length in user-perceived characters.
func (s Segment) CharCount() int {
	return Len(s.Text)
}

// Thread is an ordered, non-empty sequence of segments.
type Thread []Segment

// FromTexts builds a thread from already segmented texts.
// An empty input yields a single empty segment.
func FromTexts(texts []string) Thread {
	if len(texts) == 0 {
		return Thread{{Index: 0, Text: ""}}
	}
	t := make(Thread, len(texts))
	for i, text := range texts {
		t[i] = Segment{Index: i, Text: text}
	}
	return t
}

// Len returns the number of segments.
func (t Thread) Len() int {
	return len(t)
}

// IsThread reports whether the text was split into more than one segment.
func (t Thread) IsThread() bool {
	return len(t) > 1
}

// Texts returns the segment texts in order.
func (t Thread) Texts() []string {
	texts := make([]string, len(t))
	for i, s := range t {
		texts[i] = s.Text
	}
	return texts
}

// Replace overwrites the text of the segment at index, keeping its position.
func (t Thread) Replace(index int, text string) error {
	if index < 0 || index >= len(t) {
		return fmt.Errorf("replace segment %d: %w", index, ErrIndexOutOfRange)
	}
	t[index].Text = text
	return nil
}

// Len returns the length of s in grapheme clusters.
func Len(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Estimate returns the segment count label used in "n/total" prefixes for a
// text of the given length. It is computed once from the full text and is
// not corrected afterwards, so it may differ from the number of segments
// actually produced.
func Estimate(length, hardLimit int) int {
	per := hardLimit - estimateMargin
	if per < 1 {
		per = 1
	}
	return (length + per - 1) / per
}

// Prefix returns the position marker for the 1-based segment number.
// The first segment has none.
func Prefix(number, estimate int) string {
	if number <= 1 {
		return ""
	}
	return fmt.Sprintf("%d/%d ", number, estimate)
}

// StripPrefix removes a leading "n/total " marker from text, if present.
func StripPrefix(text string) string {
	if m := prefixPattern.FindStringIndex(text); m != nil {
		return text[m[1]:]
	}
	return text
}
