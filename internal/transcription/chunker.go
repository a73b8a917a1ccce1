package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Nexitus/KotoSub/internal/language"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
)

// AudioCutter extracts a time range from a prepared WAV file.
type AudioCutter interface {
	CutAudio(ctx context.Context, source string, startSec, durationSec float64, dest string) error
}

// detectVoteChunks is how many leading chunks contribute to the language
// majority vote before the detection is locked in.
const detectVoteChunks = 3

// chunkRetryAttempts is how many times a single chunk is attempted before
// the whole transcription fails.
const chunkRetryAttempts = 2

const (
	defaultChunkRetryBaseDelay = 1 * time.Second
	defaultChunkRetryMaxDelay  = 10 * time.Second
)

// ChunkerConfig sizes the chunking run.
type ChunkerConfig struct {
	ChunkSeconds        int
	OverlapSeconds      int
	DetectWindowSeconds int
	WorkDir             string
}

// Chunker drives a Provider over a long audio file in overlapping chunks.
type Chunker struct {
	provider Provider
	cutter   AudioCutter
	cfg      ChunkerConfig
	logger   *slog.Logger

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// ChunkerOption customizes the chunker.
type ChunkerOption func(*Chunker)

// WithChunkRetryBackoff overrides the retry backoff delays.
func WithChunkRetryBackoff(baseDelay, maxDelay time.Duration) ChunkerOption {
	return func(c *Chunker) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithChunkSleeper overrides how retry sleeps are performed (useful for tests).
func WithChunkSleeper(sleeper func(time.Duration)) ChunkerOption {
	return func(c *Chunker) {
		c.sleeper = sleeper
	}
}

// NewChunker assembles a chunker. The logger may be nil.
func NewChunker(provider Provider, cutter AudioCutter, cfg ChunkerConfig, logger *slog.Logger, opts ...ChunkerOption) *Chunker {
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = 300
	}
	if cfg.OverlapSeconds < 0 || cfg.OverlapSeconds >= cfg.ChunkSeconds {
		cfg.OverlapSeconds = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	chunker := &Chunker{
		provider:       provider,
		cutter:         cutter,
		cfg:            cfg,
		logger:         logger,
		retryBaseDelay: defaultChunkRetryBaseDelay,
		retryMaxDelay:  defaultChunkRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(chunker)
	}
	return chunker
}

// ProgressFunc reports chunk completion.
type ProgressFunc func(completed, total int)

type chunkSpan struct {
	start    float64
	duration float64
}

func planChunks(totalSeconds float64, chunkSeconds, overlapSeconds int) []chunkSpan {
	chunk := float64(chunkSeconds)
	step := float64(chunkSeconds - overlapSeconds)
	if totalSeconds <= chunk {
		return []chunkSpan{{start: 0, duration: totalSeconds}}
	}
	var spans []chunkSpan
	for start := 0.0; start < totalSeconds; start += step {
		duration := chunk
		if start+duration > totalSeconds {
			duration = totalSeconds - start
		}
		spans = append(spans, chunkSpan{start: start, duration: duration})
		if start+chunk >= totalSeconds {
			break
		}
	}
	return spans
}

// Run transcribes the audio file and returns the stitched segments plus the
// resolved source language. progress may be nil.
func (c *Chunker) Run(ctx context.Context, audioPath string, totalSeconds float64, languageHint string, progress ProgressFunc) (Result, error) {
	var result Result
	if totalSeconds <= 0 {
		return result, fmt.Errorf("chunker: non-positive audio duration %.2f", totalSeconds)
	}

	hint := language.Normalize(languageHint)
	spans := planChunks(totalSeconds, c.cfg.ChunkSeconds, c.cfg.OverlapSeconds)

	var (
		segments []media.Segment
		votes    []string
		resolved = hint
	)
	if resolved == language.Auto {
		resolved = ""
	}
	if resolved == "" {
		resolved = c.detectLanguage(ctx, audioPath, totalSeconds)
	}

	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		chunkPath := audioPath
		if len(spans) > 1 {
			chunkPath = filepath.Join(c.cfg.WorkDir, fmt.Sprintf("chunk_%03d.wav", i))
			if err := c.cutter.CutAudio(ctx, audioPath, span.start, span.duration, chunkPath); err != nil {
				return result, fmt.Errorf("chunker: cut chunk %d: %w", i, err)
			}
		}

		chunkHint := resolved
		if chunkHint == "" {
			chunkHint = language.Auto
		}
		chunkResult, err := c.transcribeWithRetry(ctx, chunkPath, chunkHint, i)
		if err != nil {
			return result, err
		}

		if resolved == "" && chunkResult.Language != "" {
			votes = append(votes, chunkResult.Language)
			if len(votes) >= detectVoteChunks || i == len(spans)-1 {
				resolved = language.MajorityVote(votes)
				c.logger.Info("source language resolved",
					logging.String("language", resolved),
					logging.Int("votes", len(votes)))
			}
		}

		for j := range chunkResult.Segments {
			chunkResult.Segments[j].Start += span.start
			chunkResult.Segments[j].End += span.start
		}
		segments = mergeChunk(segments, chunkResult.Segments, span.start)

		if progress != nil {
			progress(i+1, len(spans))
		}
	}

	if resolved == "" {
		resolved = language.MajorityVote(votes)
	}

	media.SortSegments(segments)
	result.Segments = media.CleanSegments(segments)
	result.Language = resolved
	return result, nil
}

// detectLanguage resolves the source language from a short leading window so
// the first full chunk already carries a pinned hint. Any failure falls back
// to the majority vote over the real chunks.
func (c *Chunker) detectLanguage(ctx context.Context, audioPath string, totalSeconds float64) string {
	window := float64(c.cfg.DetectWindowSeconds)
	if window <= 0 || totalSeconds <= window {
		return ""
	}

	clipPath := filepath.Join(c.cfg.WorkDir, "detect_window.wav")
	if err := c.cutter.CutAudio(ctx, audioPath, 0, window, clipPath); err != nil {
		c.logger.Warn("cut detection window", logging.Error(err))
		return ""
	}
	result, err := c.provider.Transcribe(ctx, clipPath, language.Auto)
	if err != nil {
		c.logger.Warn("detection window transcription failed", logging.Error(err))
		return ""
	}
	detected := language.Normalize(result.Language)
	if detected == "" || detected == language.Auto {
		return ""
	}
	c.logger.Info("source language detected",
		logging.String("language", detected),
		logging.Int("window_seconds", c.cfg.DetectWindowSeconds))
	return detected
}

func (c *Chunker) transcribeWithRetry(ctx context.Context, chunkPath, hint string, index int) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= chunkRetryAttempts; attempt++ {
		result, err := c.provider.Transcribe(ctx, chunkPath, hint)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Result{}, err
		}
		if !retryableTranscription(err) {
			return Result{}, fmt.Errorf("chunker: chunk %d: %w", index, err)
		}
		if attempt == chunkRetryAttempts {
			break
		}
		c.logger.Warn("chunk transcription failed",
			logging.Int("chunk", index),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if err := c.sleep(ctx, c.backoffDelay(attempt)); err != nil {
			return Result{}, err
		}
	}
	return Result{}, fmt.Errorf("chunker: chunk %d failed after %d attempts: %w", index, chunkRetryAttempts, lastErr)
}

// retryableTranscription classifies a provider failure. Client-side HTTP
// errors will not improve on a retry; everything else (network faults,
// server errors, local process failures) gets another attempt.
func retryableTranscription(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	return true
}

// backoffDelay doubles the base delay per retry up to the cap.
func (c *Chunker) backoffDelay(attempt int) time.Duration {
	if c.retryBaseDelay <= 0 {
		return 0
	}
	delay := c.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if c.retryMaxDelay > 0 && delay > c.retryMaxDelay/2 {
			return c.retryMaxDelay
		}
		delay *= 2
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Chunker) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
