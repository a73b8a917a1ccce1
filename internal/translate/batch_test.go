package translate

import (
	"strings"
	"testing"

	"github.com/Nexitus/KotoSub/internal/media"
)

func TestBuildBatchesRespectsSegmentLimit(t *testing.T) {
	segments := make([]media.Segment, 30)
	for i := range segments {
		segments[i] = media.Segment{Start: float64(i), End: float64(i + 1), Text: "line"}
	}
	batches := BuildBatches(segments, 0, 12)
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if len(batches[0].Segments) != 12 || len(batches[2].Segments) != 6 {
		t.Fatalf("batch sizes = %d/%d/%d", len(batches[0].Segments), len(batches[1].Segments), len(batches[2].Segments))
	}
	if batches[1].Offset != 12 || batches[2].Offset != 24 {
		t.Fatalf("offsets = %d/%d", batches[1].Offset, batches[2].Offset)
	}
}

func TestBuildBatchesNeverSplitsASegment(t *testing.T) {
	segments := []media.Segment{
		{Text: strings.Repeat("a", 900)},
		{Text: strings.Repeat("b", 900)},
		{Text: strings.Repeat("c", 100)},
	}
	batches := BuildBatches(segments, 1600, 12)
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if len(batches[0].Segments) != 1 {
		t.Fatalf("first batch holds %d segments, want segment boundary respected", len(batches[0].Segments))
	}
	if len(batches[1].Segments) != 2 {
		t.Fatalf("second batch holds %d segments", len(batches[1].Segments))
	}
}

func TestBuildBatchesOversizedSegmentTravelsAlone(t *testing.T) {
	segments := []media.Segment{
		{Text: "short"},
		{Text: strings.Repeat("x", 5000)},
		{Text: "after"},
	}
	batches := BuildBatches(segments, 1600, 12)
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if len(batches[1].Segments) != 1 {
		t.Fatalf("oversized segment should be alone, got %d", len(batches[1].Segments))
	}
}

func TestBuildBatchesCountsRunes(t *testing.T) {
	// 800 three-byte runes in each of two segments fit in one 1600-char batch.
	segments := []media.Segment{
		{Text: strings.Repeat("あ", 800)},
		{Text: strings.Repeat("い", 800)},
	}
	batches := BuildBatches(segments, 1600, 12)
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want rune-based counting to keep one batch", len(batches))
	}
}

func TestBuildBatchesEmpty(t *testing.T) {
	if batches := BuildBatches(nil, 1600, 12); len(batches) != 0 {
		t.Fatalf("batches = %d, want 0", len(batches))
	}
}
