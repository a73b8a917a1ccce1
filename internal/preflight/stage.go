// Package preflight validates a submitted video and prepares its working
// directory before any expensive stage runs.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// Validator probes a media file and rejects inputs the pipeline cannot
// process.
type Validator interface {
	Validate(ctx context.Context, source string) (ffmpegsvc.MediaInfo, error)
}

// Stage rejects bad inputs and bad configurations before the job consumes
// any transcription or translation budget.
type Stage struct {
	cfg       *config.Config
	logger    *slog.Logger
	validator Validator
}

// NewStage wires the validation stage.
func NewStage(cfg *config.Config, logger *slog.Logger, validator Validator) *Stage {
	return &Stage{cfg: cfg, logger: logging.WithComponent(logger, "preflight"), validator: validator}
}

// Prepare ensures the work root exists.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if err := os.MkdirAll(s.cfg.Paths.WorkDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "validating", "prepare", "create work root", err)
	}
	return nil
}

// Execute checks the source file and job configuration, then creates the
// per-job working directory.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	if _, err := stage.JobConfig(job.ConfigJSON); err != nil {
		return err
	}

	if _, err := os.Stat(job.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, "validating", "stat source",
			fmt.Sprintf("source file %s is not readable", job.SourcePath), err)
	}
	info, err := s.validator.Validate(ctx, job.SourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrValidation, "validating", "probe source", "", err)
	}

	workDir := filepath.Join(s.cfg.Paths.WorkDir, "job-"+job.Token)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "validating", "create work directory", workDir, err)
	}
	job.WorkDir = workDir

	s.logger.Info("source validated",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("video_codec", info.VideoCodec),
		logging.Float64("duration_seconds", info.DurationSeconds))
	return nil
}

// HealthCheck verifies ffmpeg and ffprobe resolve on PATH.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "validating"
	var missing []string
	for _, binary := range []string{s.ffmpegBinary(), s.ffprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			missing = append(missing, binary)
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(name, fmt.Sprintf("missing binaries: %s", strings.Join(missing, ", ")))
	}
	return stage.Healthy(name)
}

func (s *Stage) ffmpegBinary() string {
	if s.cfg.Media.FFmpegBinary != "" {
		return s.cfg.Media.FFmpegBinary
	}
	return "ffmpeg"
}

func (s *Stage) ffprobeBinary() string {
	if s.cfg.Media.FFprobeBinary != "" {
		return s.cfg.Media.FFprobeBinary
	}
	return "ffprobe"
}
