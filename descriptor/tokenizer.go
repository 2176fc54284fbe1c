package descriptor

import (
	"iter"
	"net/url"
	"strings"
)

const (
	// Delimiter separates descriptor segments.
	Delimiter = "|"
	// Separator splits a field segment into key and value. Only the first occurrence counts.
	Separator = "="
)

// Field is one key=value segment following the URL.
type Field struct {
	Key string
	// Value is percent-decoded, or the raw value when decoding failed.
	Value string
	// Segment is the segment as it appeared in the descriptor.
	Segment string
	// Index is the segment position; the URL is segment 0.
	Index int
}

// Tokenizer splits a descriptor into its URL segment and a single-pass stream of fields.
// Malformed segments are skipped and recorded; see Issues.
type Tokenizer struct {
	url    string
	rest   string
	more   bool
	index  int
	field  Field
	issues []*SegmentError
}

// NewTokenizer prepares raw for tokenizing. The URL segment is available immediately.
func NewTokenizer(raw string) *Tokenizer {
	first, rest, more := strings.Cut(raw, Delimiter)
	return &Tokenizer{url: first, rest: rest, more: more}
}

// URL returns the first segment, verbatim.
func (t *Tokenizer) URL() string {
	return t.url
}

// Next advances to the next well-formed field. It returns false once the descriptor is exhausted.
func (t *Tokenizer) Next() bool {
	for t.more {
		var segment string
		segment, t.rest, t.more = strings.Cut(t.rest, Delimiter)
		t.index++

		name, value, ok := strings.Cut(segment, Separator)
		if !ok || strings.TrimSpace(name) == "" {
			t.issue(segment, ErrMalformedSegment)
			continue
		}

		decoded, err := url.PathUnescape(value)
		if err != nil {
			t.issue(segment, ErrUndecodablePercentSequence)
			decoded = value
		}

		t.field = Field{Key: name, Value: decoded, Segment: segment, Index: t.index}
		return true
	}

	return false
}

// Field returns the field Next stopped at.
func (t *Tokenizer) Field() Field {
	return t.field
}

// All drains the tokenizer as an iterator. Like Next, it cannot be restarted.
func (t *Tokenizer) All() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		for t.Next() {
			if !yield(t.field) {
				return
			}
		}
	}
}

// Issues returns the non-fatal problems met so far, in segment order.
func (t *Tokenizer) Issues() []*SegmentError {
	return t.issues
}

func (t *Tokenizer) issue(segment string, err error) {
	t.issues = append(t.issues, &SegmentError{Index: t.index, Segment: segment, Err: err})
}
