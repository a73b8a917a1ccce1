// Package audio extracts the spoken-dialogue track from a video as mono
// 16kHz PCM suitable for speech recognition.
package audio

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
	"github.com/Nexitus/KotoSub/internal/stage"
)

const audioFile = "audio.wav"

// Extractor converts a video's audio stream into the pipeline's working
// format.
type Extractor interface {
	Probe(ctx context.Context, source string) (ffmpegsvc.MediaInfo, error)
	ExtractAudio(ctx context.Context, source string, audioIndex int, dest string, opts ffmpegsvc.ExtractOptions) error
}

// Stage produces the audio artifact every downstream stage consumes.
type Stage struct {
	cfg       *config.Config
	logger    *slog.Logger
	extractor Extractor
}

// NewStage wires the audio extraction stage.
func NewStage(cfg *config.Config, logger *slog.Logger, extractor Extractor) *Stage {
	return &Stage{cfg: cfg, logger: logging.WithComponent(logger, "audio"), extractor: extractor}
}

// Prepare verifies the job has a working directory.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.WorkDir == "" {
		return services.Wrap(services.ErrValidation, "extracting", "prepare", "job has no working directory", nil)
	}
	return nil
}

// Execute extracts the first audio stream into the working directory and
// records the artifact path on the job.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	info, err := s.extractor.Probe(ctx, job.SourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrValidation, "extracting", "probe source", "", err)
	}

	dest := filepath.Join(job.WorkDir, audioFile)
	opts := ffmpegsvc.ExtractOptions{
		Denoise:           s.cfg.Media.Denoise,
		LoudnessNormalize: s.cfg.Media.LoudnessNormalize,
	}
	if err := s.extractor.ExtractAudio(ctx, job.SourcePath, info.AudioStreamIndex, dest, opts); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrExternalTool, "extracting", "extract audio", "", err)
	}
	if stat, err := os.Stat(dest); err != nil || stat.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "extracting", "verify audio",
			"extraction produced no audio data", err)
	}

	job.AudioPath = dest
	s.logger.Info("audio extracted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("stream_index", info.AudioStreamIndex),
		logging.Bool("denoise", opts.Denoise))
	return nil
}

// HealthCheck always reports ready; binary availability is covered by the
// validation stage.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("extracting")
}
