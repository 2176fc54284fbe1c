package descriptor

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is the only error Parse fails with: the descriptor (or its URL segment) is blank.
var ErrEmptyInput = errors.New("empty descriptor")

// Non-fatal conditions. Parse degrades past them; Diagnose reports them wrapped in a *SegmentError.
var (
	ErrMalformedSegment           = errors.New("segment is not a key=value pair")
	ErrUndecodablePercentSequence = errors.New("value has an invalid percent-encoding, kept as is")
	ErrUnsupportedDRMScheme       = errors.New("unsupported drm scheme, drm left inert")
	ErrIncompleteDRM              = errors.New("drm scheme and license must be given together, drm disabled")
)

// SegmentError ties a non-fatal condition to the descriptor segment that caused it.
type SegmentError struct {
	// Index is the segment position; the URL is segment 0.
	Index   int
	Segment string
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d %q: %v", e.Index, e.Segment, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
