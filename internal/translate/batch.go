package translate

import "github.com/Nexitus/KotoSub/internal/media"

// Batch is a contiguous run of segments translated in one request. Offset is
// the index of the first segment within the full transcript.
type Batch struct {
	Offset   int
	Segments []media.Segment
}

// BuildBatches packs segments into batches without ever splitting a segment.
// A batch closes when adding the next segment would exceed maxChars or
// maxSegments. A single oversized segment still travels alone rather than
// being dropped.
func BuildBatches(segments []media.Segment, maxChars, maxSegments int) []Batch {
	if maxChars <= 0 {
		maxChars = 1600
	}
	if maxSegments <= 0 {
		maxSegments = 12
	}

	var batches []Batch
	var current []media.Segment
	chars := 0
	offset := 0

	flush := func(next int) {
		if len(current) > 0 {
			batches = append(batches, Batch{Offset: offset, Segments: current})
		}
		current = nil
		chars = 0
		offset = next
	}

	for i, seg := range segments {
		segChars := len([]rune(seg.Text))
		if len(current) > 0 && (chars+segChars > maxChars || len(current) >= maxSegments) {
			flush(i)
		}
		current = append(current, seg)
		chars += segChars
	}
	flush(len(segments))
	return batches
}
