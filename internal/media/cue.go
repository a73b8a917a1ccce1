package media

import "strings"

// Cue is a finalized, display-ready subtitle entry. Lines carries the
// wrapped text (at most two lines under the default style). A sequence of
// cues is valid when it is ordered by start time and pairwise
// non-overlapping: cues[i].End <= cues[i+1].Start.
type Cue struct {
	Start   float64  `json:"start"`
	End     float64  `json:"end"`
	Lines   []string `json:"lines"`
	Speaker string   `json:"speaker,omitempty"`
}

// Text joins the cue lines with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// Duration returns the display duration in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// ValidateCues reports whether cues are sorted and non-overlapping. A
// violation here is a programming error in the refinement engine, not bad
// user input.
func ValidateCues(cues []Cue) bool {
	for i := range cues {
		if cues[i].End <= cues[i].Start {
			return false
		}
		if i > 0 && cues[i-1].End > cues[i].Start {
			return false
		}
	}
	return true
}
