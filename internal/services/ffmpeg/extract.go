package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// ExtractOptions controls the audio conditioning filters applied during
// extraction.
type ExtractOptions struct {
	Denoise           bool
	LoudnessNormalize bool
}

// ExtractAudio extracts the audio stream into a mono 16kHz PCM WAV file
// suitable for speech recognition.
func (s *Service) ExtractAudio(ctx context.Context, source string, audioIndex int, dest string, opts ExtractOptions) error {
	if audioIndex < 0 {
		return fmt.Errorf("extract audio: invalid audio stream index %d", audioIndex)
	}
	args := buildExtractArgs(source, audioIndex, dest, opts)
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// CutAudio copies a time range out of an already extracted WAV file. The
// chunker uses this to produce per-chunk inputs without re-decoding the
// source container.
func (s *Service) CutAudio(ctx context.Context, source string, startSec, durationSec float64, dest string) error {
	if durationSec <= 0 {
		return fmt.Errorf("cut audio: invalid duration %.2f", durationSec)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", source,
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg cut: %w", err)
	}
	return nil
}

func buildExtractArgs(source string, audioIndex int, dest string, opts ExtractOptions) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
	}
	if filter := buildAudioFilter(opts); filter != "" {
		args = append(args, "-af", filter)
	}
	args = append(args,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
	return args
}

func buildAudioFilter(opts ExtractOptions) string {
	var filters []string
	if opts.Denoise {
		filters = append(filters, "afftdn=nf=-25")
	}
	if opts.LoudnessNormalize {
		filters = append(filters, "loudnorm")
	}
	return strings.Join(filters, ",")
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}
