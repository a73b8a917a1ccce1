package diarize

import (
	"context"
	"sort"

	"github.com/Nexitus/KotoSub/internal/media"
)

// Turn is one continuous span of speech attributed to a single speaker.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Provider produces speaker turns for an audio file.
type Provider interface {
	Name() string
	Turns(ctx context.Context, audioPath string) ([]Turn, error)
}

// AssignSpeakers labels each segment with the speaker whose turn overlaps it
// the most. Ties break toward the turn that starts earliest. Segments with no
// overlapping turn keep an empty Speaker. The segments slice is modified in
// place and returned.
func AssignSpeakers(segments []media.Segment, turns []Turn) []media.Segment {
	if len(turns) == 0 {
		return segments
	}
	sorted := make([]Turn, len(turns))
	copy(sorted, turns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i := range segments {
		segments[i].Speaker = bestSpeaker(segments[i], sorted)
	}
	return segments
}

func bestSpeaker(seg media.Segment, turns []Turn) string {
	best := ""
	bestOverlap := 0.0
	for _, turn := range turns {
		if turn.Start >= seg.End {
			break
		}
		overlap := overlapSeconds(seg.Start, seg.End, turn.Start, turn.End)
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = turn.Speaker
		}
	}
	return best
}

func overlapSeconds(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
