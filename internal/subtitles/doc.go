// Package subtitles turns translated transcript segments into display-ready
// subtitle files.
//
// The refinement engine applies a reading-speed budget to segment timings:
// short cues are extended, near-adjacent cues merged, overlong cues split at
// clause boundaries, and text wrapped to the configured line budget. The
// result is an ordered, non-overlapping cue list that the SRT, ASS, and
// WebVTT renderers serialize without further decisions.
package subtitles
