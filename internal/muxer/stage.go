// Package muxer burns finished subtitles into the source video.
package muxer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
	"github.com/Nexitus/KotoSub/internal/stage"
	"github.com/Nexitus/KotoSub/internal/subtitles"
)

// Burner renders a subtitle file into a video's frames.
type Burner interface {
	Burn(ctx context.Context, source, subtitlePath, dest string, opts ffmpegsvc.BurnOptions) (string, error)
}

// Stage produces the optional burned-in video output.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	burner Burner
}

// NewStage wires the mux stage.
func NewStage(cfg *config.Config, logger *slog.Logger, burner Burner) *Stage {
	return &Stage{cfg: cfg, logger: logging.WithComponent(logger, "muxer"), burner: burner}
}

// Prepare verifies the serialization stage produced subtitle files.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.SubtitlePathsJSON == "" {
		return services.Wrap(services.ErrValidation, "muxing", "prepare", "job has no subtitle artifacts", nil)
	}
	return nil
}

// Execute burns the subtitles into the video. The ASS artifact is preferred
// because it carries the styling; plain formats burn with a force_style
// derived from the job configuration.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		return err
	}

	subtitlePath, err := pickSubtitle(job.SubtitlePathsJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "muxing", "select subtitle", "", err)
	}

	dest := filepath.Join(s.cfg.Paths.OutputDir,
		subtitles.OutputBaseName(job, jobCfg)+filepath.Ext(job.SourcePath))
	if dest == job.SourcePath {
		dest = filepath.Join(s.cfg.Paths.OutputDir,
			subtitles.OutputBaseName(job, jobCfg)+".subbed"+filepath.Ext(job.SourcePath))
	}

	encoder, err := s.burner.Burn(ctx, job.SourcePath, subtitlePath, dest, ffmpegsvc.BurnOptions{
		Style:  jobCfg.Style,
		UseGPU: s.cfg.Media.UseGPU,
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrMux, "muxing", "burn subtitles", "", err)
	}
	if stat, statErr := os.Stat(dest); statErr != nil || stat.Size() == 0 {
		return services.Wrap(services.ErrMux, "muxing", "verify output", "encode produced no video data", statErr)
	}

	job.VideoOutput = dest
	s.logger.Info("subtitles burned",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("encoder", encoder),
		logging.String("output", dest))
	return nil
}

// HealthCheck reports ready; encoder availability is only known at encode
// time because NVENC failures fall back to software.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("muxing")
}

// pickSubtitle chooses the subtitle artifact to burn, preferring the styled
// ASS rendition when present.
func pickSubtitle(pathsJSON string) (string, error) {
	var paths map[string]string
	if err := json.Unmarshal([]byte(pathsJSON), &paths); err != nil {
		return "", err
	}
	if path, ok := paths[media.FormatASS]; ok {
		return path, nil
	}
	for _, format := range []string{media.FormatSRT, media.FormatVTT} {
		if path, ok := paths[format]; ok {
			return path, nil
		}
	}
	return "", errors.New("no subtitle artifact recorded")
}
