package subtitles

import (
	"math"
	"strings"
	"testing"

	"github.com/Nexitus/KotoSub/internal/media"
)

func translated(start, end float64, text string) media.TranslatedSegment {
	return media.TranslatedSegment{
		Segment:    media.Segment{Start: start, End: end, Text: text},
		Translated: text,
	}
}

func TestRefineMergesAcrossSmallGap(t *testing.T) {
	segments := []media.TranslatedSegment{
		translated(0, 2, "A"),
		translated(2.05, 4, "B"),
	}
	cues := Refine(segments, Options{MergeGapMS: 200})
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want merge across 50ms gap", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 4 {
		t.Fatalf("cue window = %v-%v, want 0-4", cues[0].Start, cues[0].End)
	}
	if cues[0].Text() != "A B" {
		t.Fatalf("cue text = %q", cues[0].Text())
	}
}

func TestRefineDoesNotMergeAcrossLargeGap(t *testing.T) {
	segments := []media.TranslatedSegment{
		translated(0, 2, "first line here"),
		translated(2.5, 4, "second line here"),
	}
	cues := Refine(segments, Options{MergeGapMS: 200})
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
}

func TestRefineDoesNotMergeAcrossSpeakers(t *testing.T) {
	a := translated(0, 2, "hello")
	a.Speaker = "SPEAKER_00"
	b := translated(2.05, 4, "hi")
	b.Speaker = "SPEAKER_01"
	cues := Refine([]media.TranslatedSegment{a, b}, Options{})
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want speaker change to block the merge", len(cues))
	}
}

func TestRefineExtendsShortCueToReadingBudget(t *testing.T) {
	text := strings.Repeat("abcde ", 10) // 60 chars
	segments := []media.TranslatedSegment{translated(0, 1, strings.TrimSpace(text))}
	cues := Refine(segments, Options{
		CharsPerSecond:     20,
		MaxDurationSeconds: 3,
		MaxLineChars:       30,
	})
	if len(cues) != 1 {
		t.Fatalf("cues = %d: %+v", len(cues), cues)
	}
	if math.Abs(cues[0].End-2.95) > 0.1 {
		t.Fatalf("end = %v, want extension to about 59/20s", cues[0].End)
	}
	for _, line := range cues[0].Lines {
		if len([]rune(line)) > 30 {
			t.Fatalf("line %q exceeds 30 chars", line)
		}
	}
}

func TestRefineExtensionBoundedByNextSegment(t *testing.T) {
	segments := []media.TranslatedSegment{
		translated(0, 1, strings.Repeat("x", 40)),
		translated(2, 3, "next"),
	}
	cues := Refine(segments, Options{CharsPerSecond: 10, MaxDurationSeconds: 7})
	if cues[0].End > 2 {
		t.Fatalf("end = %v, must not cross next segment start", cues[0].End)
	}
}

func TestRefineSplitsWhenExtensionCannotSatisfyBudget(t *testing.T) {
	// 100 chars need 10s at 10 CPS but the max duration is 4s, so the text
	// splits and the second half claims time after the original end.
	words := strings.TrimSpace(strings.Repeat("word ", 20)) // 99 chars
	segments := []media.TranslatedSegment{translated(0, 1, words)}
	cues := Refine(segments, Options{
		CharsPerSecond:     10,
		MaxDurationSeconds: 4,
		MaxLineChars:       60,
	})
	if len(cues) < 2 {
		t.Fatalf("cues = %d, want a split", len(cues))
	}
	for i := 1; i < len(cues); i++ {
		if cues[i-1].End > cues[i].Start {
			t.Fatalf("cues overlap: %+v", cues)
		}
	}
	var joined []string
	for _, cue := range cues {
		joined = append(joined, strings.Join(cue.Lines, " "))
	}
	if strings.Join(joined, " ") != words {
		t.Fatalf("split lost text: %q", strings.Join(joined, " "))
	}
}

func TestRefineMinimumDurationFloor(t *testing.T) {
	segments := []media.TranslatedSegment{translated(0, 0.1, "hi")}
	cues := Refine(segments, Options{MinDurationMS: 500})
	if cues[0].Duration() < 0.5 {
		t.Fatalf("duration = %v, want at least the 500ms floor", cues[0].Duration())
	}
}

func TestRefineEmptyInput(t *testing.T) {
	cues := Refine(nil, Options{})
	if len(cues) != 0 {
		t.Fatalf("cues = %+v", cues)
	}
	cues = Refine([]media.TranslatedSegment{translated(0, 1, "   ")}, Options{})
	if len(cues) != 0 {
		t.Fatalf("blank text should be dropped, got %+v", cues)
	}
}

func TestRefineOutputNeverOverlaps(t *testing.T) {
	segments := []media.TranslatedSegment{
		translated(0, 5, strings.Repeat("overlap pressure here ", 6)),
		translated(4.5, 6, "tight follow-up"),
		translated(6.1, 9, "and another line of speech after that"),
	}
	cues := Refine(segments, Options{CharsPerSecond: 12})
	if !media.ValidateCues(cues) {
		t.Fatalf("invariant violated: %+v", cues)
	}
}

func TestRefineIdempotent(t *testing.T) {
	segments := []media.TranslatedSegment{
		translated(0, 1.2, "Short one."),
		translated(1.3, 4, "A somewhat longer sentence that needs wrapping onto two lines to fit."),
		translated(4.05, 5, "Tail."),
		translated(8, 8.2, strings.TrimSpace(strings.Repeat("dense ", 25))),
	}
	opts := Options{CharsPerSecond: 15, MaxLineChars: 40}
	first := Refine(segments, opts)

	refed := make([]media.TranslatedSegment, len(first))
	for i, cue := range first {
		refed[i] = media.TranslatedSegment{
			Segment:    media.Segment{Start: cue.Start, End: cue.End, Speaker: cue.Speaker},
			Translated: strings.Join(cue.Lines, " "),
		}
	}
	second := Refine(refed, opts)

	if len(first) != len(second) {
		t.Fatalf("cue count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Start != second[i].Start || first[i].End != second[i].End {
			t.Fatalf("cue %d timing changed: %+v -> %+v", i, first[i], second[i])
		}
		if first[i].Text() != second[i].Text() {
			t.Fatalf("cue %d text changed: %q -> %q", i, first[i].Text(), second[i].Text())
		}
	}
}

func TestRefineStableWhenExtensionClosesMergeGap(t *testing.T) {
	// Extending the first segment to its reading budget (40 chars at 17 CPS
	// is ~2.35s) shrinks the gap to the second segment below the merge
	// threshold, so the pair must merge in the same run rather than on a
	// later one.
	segments := []media.TranslatedSegment{
		translated(0, 1, strings.TrimSpace(strings.Repeat("forty", 8))), // 40 chars
		translated(2.4, 3.4, "Tail follows."),
	}
	first := Refine(segments, Options{})
	if len(first) != 1 {
		t.Fatalf("cues = %d, want the extended pair merged: %+v", len(first), first)
	}
	if first[0].Start != 0 || first[0].End != 3.4 {
		t.Fatalf("cue window = %v-%v, want 0-3.4", first[0].Start, first[0].End)
	}

	refed := []media.TranslatedSegment{{
		Segment:    media.Segment{Start: first[0].Start, End: first[0].End, Speaker: first[0].Speaker},
		Translated: strings.Join(first[0].Lines, " "),
	}}
	second := Refine(refed, Options{})
	if len(second) != 1 || second[0].Start != first[0].Start || second[0].End != first[0].End || second[0].Text() != first[0].Text() {
		t.Fatalf("output not stable: %+v -> %+v", first, second)
	}
}

func TestSplitTextPrefersClauseBoundary(t *testing.T) {
	left, right, ok := splitText("First clause ends here, and the rest follows after")
	if !ok {
		t.Fatal("expected a split")
	}
	if !strings.HasSuffix(left, ",") {
		t.Fatalf("left = %q, want split after the comma", left)
	}
	if strings.HasPrefix(right, " ") {
		t.Fatalf("right = %q not trimmed", right)
	}
}

func TestSplitTextNoSpaces(t *testing.T) {
	if _, _, ok := splitText("unbreakable"); ok {
		t.Fatal("single word must not split")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range lines {
		if len(line) > 15 {
			t.Fatalf("line %q too long", line)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Fatalf("wrap lost words: %q", lines)
	}

	hard := wrapText(strings.Repeat("x", 25), 10)
	if len(hard) != 3 {
		t.Fatalf("hard break lines = %d, want 3", len(hard))
	}
}
