package transcription

import "github.com/Nexitus/KotoSub/internal/media"

// boundaryEpsilon absorbs timing jitter between the same phrase heard at the
// tail of one chunk and the head of the next.
const boundaryEpsilon = 0.05

// mergeChunk stitches the segments of a newly transcribed chunk onto the
// accumulated list. Within the overlap window the later chunk wins: it heard
// the boundary speech with leading context the earlier chunk lacked.
func mergeChunk(acc, incoming []media.Segment, chunkStart float64) []media.Segment {
	if len(acc) == 0 {
		return append(acc, incoming...)
	}

	// Drop accumulated segments that sit mostly inside the overlap region.
	cut := len(acc)
	for cut > 0 {
		seg := acc[cut-1]
		if midpoint(seg) >= chunkStart {
			cut--
			continue
		}
		break
	}
	acc = acc[:cut]

	var lastEnd float64
	if len(acc) > 0 {
		lastEnd = acc[len(acc)-1].End
	}
	for _, seg := range incoming {
		if seg.End <= lastEnd+boundaryEpsilon {
			continue
		}
		if seg.Start < lastEnd {
			seg.Start = lastEnd
		}
		acc = append(acc, seg)
	}
	return acc
}

func midpoint(seg media.Segment) float64 {
	return (seg.Start + seg.End) / 2
}
