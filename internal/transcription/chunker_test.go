package transcription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Nexitus/KotoSub/internal/media"
)

type fakeCutter struct {
	cuts []chunkSpan
}

func (f *fakeCutter) CutAudio(ctx context.Context, source string, startSec, durationSec float64, dest string) error {
	f.cuts = append(f.cuts, chunkSpan{start: startSec, duration: durationSec})
	return nil
}

type fakeProvider struct {
	results   map[string]Result
	failOnce  map[string]bool
	languages []string
	calls     int
	hints     []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	f.calls++
	f.hints = append(f.hints, languageHint)
	key := filepath.Base(audioPath)
	if f.failOnce[key] {
		f.failOnce[key] = false
		return Result{}, errors.New("temporary provider glitch")
	}
	if result, ok := f.results[key]; ok {
		return result, nil
	}
	lang := "en"
	if len(f.languages) > 0 {
		idx := chunkIndexFromName(key)
		if idx >= 0 && idx < len(f.languages) {
			lang = f.languages[idx]
		}
	}
	return Result{
		Segments: []media.Segment{{Start: 1, End: 3, Text: "segment from " + key, Confidence: 0.9}},
		Language: lang,
	}, nil
}

func chunkIndexFromName(name string) int {
	name = strings.TrimSuffix(name, ".wav")
	if idx := strings.LastIndex(name, "_"); idx >= 0 {
		if n, err := strconv.Atoi(name[idx+1:]); err == nil {
			return n
		}
	}
	return -1
}

func TestPlanChunks(t *testing.T) {
	spans := planChunks(700, 300, 2)
	if len(spans) != 3 {
		t.Fatalf("spans = %+v, want 3", spans)
	}
	if spans[0].start != 0 || spans[1].start != 298 || spans[2].start != 596 {
		t.Fatalf("starts = %v %v %v", spans[0].start, spans[1].start, spans[2].start)
	}
	if last := spans[2]; math.Abs(last.start+last.duration-700) > 1e-9 {
		t.Fatalf("last chunk does not reach the end: %+v", last)
	}

	single := planChunks(120, 300, 2)
	if len(single) != 1 || single[0].duration != 120 {
		t.Fatalf("short input should be one chunk: %+v", single)
	}
}

func TestRunSingleChunkSkipsCutting(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil)

	result, err := chunker.Run(context.Background(), "/audio/full.wav", 100, "auto", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cutter.cuts) != 0 {
		t.Fatalf("short input should not be cut, got %d cuts", len(cutter.cuts))
	}
	if result.Language != "en" {
		t.Fatalf("language = %q", result.Language)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("segments = %+v", result.Segments)
	}
}

func TestRunOffsetsSegmentsByChunkStart(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil)

	result, err := chunker.Run(context.Background(), "/audio/full.wav", 598, "en", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cutter.cuts) != 2 {
		t.Fatalf("cuts = %+v", cutter.cuts)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %+v", result.Segments)
	}
	// Second chunk starts at 298; its 1..3s segment lands at 299..301.
	if result.Segments[1].Start != 299 || result.Segments[1].End != 301 {
		t.Fatalf("offset segment = %+v", result.Segments[1])
	}
}

func TestRunMajorityVoteResolvesLanguage(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{languages: []string{"ja", "en", "ja", "ko"}}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil)

	result, err := chunker.Run(context.Background(), "/audio/full.wav", 1100, "auto", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Language != "ja" {
		t.Fatalf("language = %q, want majority ja", result.Language)
	}
}

func TestRunDetectWindowPinsLanguage(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{
		results:   map[string]Result{"detect_window.wav": {Language: "ja"}},
		languages: []string{"en", "en", "en", "en"},
	}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, DetectWindowSeconds: 30, WorkDir: t.TempDir()}, nil)

	result, err := chunker.Run(context.Background(), "/audio/full.wav", 1100, "auto", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cutter.cuts) == 0 || cutter.cuts[0].start != 0 || cutter.cuts[0].duration != 30 {
		t.Fatalf("cuts = %+v, want a leading 30s detection clip", cutter.cuts)
	}
	if result.Language != "ja" {
		t.Fatalf("language = %q, want the window detection over the chunk vote", result.Language)
	}
	if provider.hints[0] != "auto" {
		t.Fatalf("detection hint = %q", provider.hints[0])
	}
	for _, hint := range provider.hints[1:] {
		if hint != "ja" {
			t.Fatalf("hints = %v, want chunks pinned to the detected language", provider.hints)
		}
	}
}

func TestRunDetectWindowFailureFallsBackToVote(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{
		failOnce:  map[string]bool{"detect_window.wav": true},
		languages: []string{"ja", "en", "ja", "ko"},
	}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, DetectWindowSeconds: 30, WorkDir: t.TempDir()}, nil)

	result, err := chunker.Run(context.Background(), "/audio/full.wav", 1100, "auto", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Language != "ja" {
		t.Fatalf("language = %q, want majority vote fallback", result.Language)
	}
}

func TestRunRetriesFailedChunkOnce(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &fakeProvider{failOnce: map[string]bool{"chunk_001.wav": true}}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil,
		WithChunkSleeper(func(time.Duration) {}))

	var progress []int
	result, err := chunker.Run(context.Background(), "/audio/full.wav", 598, "en", func(done, total int) {
		progress = append(progress, done)
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %+v", result.Segments)
	}
	if fmt.Sprint(progress) != "[1 2]" {
		t.Fatalf("progress = %v", progress)
	}
}

func TestRunFailsAfterRepeatedChunkErrors(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &alwaysFailProvider{err: errors.New("provider down")}
	var delays []time.Duration
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil,
		WithChunkRetryBackoff(50*time.Millisecond, 200*time.Millisecond),
		WithChunkSleeper(func(d time.Duration) { delays = append(delays, d) }))

	if _, err := chunker.Run(context.Background(), "/audio/full.wav", 598, "en", nil); err == nil {
		t.Fatal("expected failure after retries exhausted")
	}
	if provider.calls != chunkRetryAttempts {
		t.Fatalf("calls = %d, want %d", provider.calls, chunkRetryAttempts)
	}
	if len(delays) != chunkRetryAttempts-1 || delays[0] != 50*time.Millisecond {
		t.Fatalf("delays = %v, want one backoff sleep between attempts", delays)
	}
}

func TestRunDoesNotRetryClientErrors(t *testing.T) {
	cutter := &fakeCutter{}
	provider := &alwaysFailProvider{err: &httpStatusError{StatusCode: 401, Body: "bad key"}}
	chunker := NewChunker(provider, cutter, ChunkerConfig{ChunkSeconds: 300, OverlapSeconds: 2, WorkDir: t.TempDir()}, nil,
		WithChunkSleeper(func(time.Duration) { t.Error("client errors must not back off") }))

	if _, err := chunker.Run(context.Background(), "/audio/full.wav", 598, "en", nil); err == nil {
		t.Fatal("expected failure")
	}
	if provider.calls != 1 {
		t.Fatalf("calls = %d, want no retry on http 401", provider.calls)
	}
}

func TestRetryableTranscriptionClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("connection reset"), true},
		{&httpStatusError{StatusCode: 500}, true},
		{&httpStatusError{StatusCode: 429}, true},
		{&httpStatusError{StatusCode: 408}, true},
		{&httpStatusError{StatusCode: 400}, false},
		{&httpStatusError{StatusCode: 404}, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		if got := retryableTranscription(tc.err); got != tc.want {
			t.Errorf("retryableTranscription(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

type alwaysFailProvider struct {
	calls int
	err   error
}

func (p *alwaysFailProvider) Name() string { return "fail" }
func (p *alwaysFailProvider) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	p.calls++
	return Result{}, p.err
}

func TestMergeChunkLatestWins(t *testing.T) {
	acc := []media.Segment{
		{Start: 0, End: 5, Text: "intro"},
		{Start: 297, End: 301, Text: "boundary heard early"},
	}
	incoming := []media.Segment{
		{Start: 297, End: 300.5, Text: "boundary heard with context"},
		{Start: 301, End: 305, Text: "next"},
	}
	merged := mergeChunk(acc, incoming, 298)
	if len(merged) != 3 {
		t.Fatalf("merged = %+v", merged)
	}
	if merged[1].Text != "boundary heard with context" {
		t.Fatalf("later chunk should win the overlap: %+v", merged[1])
	}
	if merged[1].Start < merged[0].End {
		t.Fatalf("merged segments overlap: %+v", merged)
	}
}

func TestMergeChunkDropsFullyCoveredIncoming(t *testing.T) {
	acc := []media.Segment{{Start: 0, End: 290, Text: "long block"}}
	incoming := []media.Segment{{Start: 288, End: 289.9, Text: "echo of the tail"}}
	merged := mergeChunk(acc, incoming, 288)
	if len(merged) != 1 || merged[0].Text != "long block" {
		t.Fatalf("merged = %+v", merged)
	}
}
