package media

import (
	"sort"
	"strings"
)

// Segment is a transcribed span of speech. Times are in seconds from the
// start of the source. Segments are immutable once emitted by transcription;
// the Speaker field is the only addition made later, by diarization merge.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Duration returns the span length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// TranslatedSegment pairs a source segment with its translation. Instances
// correspond one-to-one, in order, with the segments they were built from.
type TranslatedSegment struct {
	Segment
	Translated string `json:"translated"`
	Verified   bool   `json:"verified"`
}

// SortSegments orders segments by start time, preserving the relative order
// of segments that share a start.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
}

// CleanSegments trims whitespace and drops segments with empty text or a
// non-positive duration. The input slice is not modified.
func CleanSegments(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" || seg.End <= seg.Start {
			continue
		}
		out = append(out, seg)
	}
	return out
}
