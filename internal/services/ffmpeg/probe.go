package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MediaInfo summarizes the streams of a probed container.
type MediaInfo struct {
	DurationSeconds float64
	HasVideo        bool
	HasAudio        bool
	VideoCodec      string
	Width           int
	Height          int
	// AudioStreamIndex is the container index of the first audio stream.
	AudioStreamIndex int
}

type probePayload struct {
	Streams []struct {
		Index     int    `json:"index"`
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file and returns its stream summary.
func (s *Service) Probe(ctx context.Context, source string) (MediaInfo, error) {
	var info MediaInfo
	if strings.TrimSpace(source) == "" {
		return info, errors.New("probe: source path required")
	}
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		source,
	}
	output, err := s.output(ctx, s.ffprobeBinary, args...)
	if err != nil {
		return info, fmt.Errorf("probe: %w", err)
	}
	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return info, fmt.Errorf("probe: parse ffprobe output: %w", err)
	}

	info.AudioStreamIndex = -1
	for _, stream := range payload.Streams {
		switch stream.CodecType {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.VideoCodec = stream.CodecName
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioStreamIndex = stream.Index
			}
		}
	}
	if duration := strings.TrimSpace(payload.Format.Duration); duration != "" {
		if parsed, err := strconv.ParseFloat(duration, 64); err == nil {
			info.DurationSeconds = parsed
		}
	}
	return info, nil
}

// Validate probes the source and confirms it carries both a video and an
// audio stream.
func (s *Service) Validate(ctx context.Context, source string) (MediaInfo, error) {
	info, err := s.Probe(ctx, source)
	if err != nil {
		return info, err
	}
	if !info.HasVideo {
		return info, errors.New("validate: no video stream found")
	}
	if !info.HasAudio {
		return info, errors.New("validate: no audio stream found")
	}
	if info.DurationSeconds <= 0 {
		return info, errors.New("validate: container reports no duration")
	}
	return info, nil
}
