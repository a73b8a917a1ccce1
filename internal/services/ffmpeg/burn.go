package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nexitus/KotoSub/internal/media"
)

// Encoder identifiers reported by Burn.
const (
	EncoderNVENC = "hevc_nvenc"
	EncoderX264  = "libx264"
)

// assAlignment maps the human-readable position names accepted in job
// configurations to ASS numpad alignment values.
var assAlignment = map[string]int{
	"bottom left":   1,
	"bottom center": 2,
	"bottom right":  3,
	"middle left":   4,
	"middle center": 5,
	"middle right":  6,
	"top left":      7,
	"top center":    8,
	"top right":     9,
}

// AlignmentFor resolves a position name to its ASS alignment value, falling
// back to bottom center.
func AlignmentFor(position string) int {
	if value, ok := assAlignment[strings.ToLower(strings.TrimSpace(position))]; ok {
		return value
	}
	return 2
}

// BurnOptions controls subtitle burn-in.
type BurnOptions struct {
	Style  media.Style
	UseGPU bool
}

// Burn renders subtitles into the video stream, writing a new container to
// dest. When GPU encoding is requested it tries hevc_nvenc first and falls
// back to libx264 if the encoder is unavailable. The encoder actually used is
// returned.
func (s *Service) Burn(ctx context.Context, source, subtitlePath, dest string, opts BurnOptions) (string, error) {
	if strings.TrimSpace(subtitlePath) == "" {
		return "", fmt.Errorf("burn: subtitle path required")
	}

	if opts.UseGPU {
		args := buildBurnArgs(source, subtitlePath, dest, opts.Style, EncoderNVENC)
		if err := s.run(ctx, s.ffmpegBinary, args...); err == nil {
			return EncoderNVENC, nil
		} else if ctx.Err() != nil {
			return "", err
		}
	}
	args := buildBurnArgs(source, subtitlePath, dest, opts.Style, EncoderX264)
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return "", fmt.Errorf("ffmpeg burn: %w", err)
	}
	return EncoderX264, nil
}

func buildBurnArgs(source, subtitlePath, dest string, style media.Style, encoder string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", buildSubtitleFilter(subtitlePath, style),
		"-c:v", encoder,
	}
	if encoder == EncoderX264 {
		args = append(args, "-crf", "20", "-preset", "medium")
	}
	args = append(args, "-c:a", "copy", dest)
	return args
}

func buildSubtitleFilter(subtitlePath string, style media.Style) string {
	forceStyle := fmt.Sprintf(
		"FontName=%s,FontSize=%d,Alignment=%d,Outline=%g,Shadow=%g",
		style.Font,
		style.FontSize,
		AlignmentFor(style.Position),
		style.Outline,
		style.Shadow,
	)
	return fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(subtitlePath), forceStyle)
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter graph,
// where backslash, colon, and quote are meta characters.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(path)
}
