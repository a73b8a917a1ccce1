package subtitles

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	"github.com/Nexitus/KotoSub/internal/stage"
)

const (
	translationsFile = "translations.json"
	cuesFile         = "cues.json"
)

// RefineStage turns the translation artifact into the cue artifact.
type RefineStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRefineStage wires the timing refinement stage.
func NewRefineStage(cfg *config.Config, logger *slog.Logger) *RefineStage {
	return &RefineStage{cfg: cfg, logger: logging.WithComponent(logger, "refine")}
}

// Prepare verifies the translation artifact exists.
func (s *RefineStage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.WorkDir == "" {
		return services.Wrap(services.ErrValidation, "refining", "prepare", "job has no working directory", nil)
	}
	if _, err := os.Stat(filepath.Join(job.WorkDir, translationsFile)); err != nil {
		return services.Wrap(services.ErrValidation, "refining", "prepare", "translation artifact missing", err)
	}
	return nil
}

// Execute runs the refinement engine and persists the cue artifact.
func (s *RefineStage) Execute(ctx context.Context, job *queue.Job) error {
	translated, err := media.ReadTranslationsFile(filepath.Join(job.WorkDir, translationsFile))
	if err != nil {
		return services.Wrap(services.ErrValidation, "refining", "read translations", "", err)
	}

	cues := Refine(translated, Options{
		CharsPerSecond:     s.cfg.Timing.CharsPerSecond,
		MinDurationMS:      s.cfg.Timing.MinDurationMS,
		MaxDurationSeconds: s.cfg.Timing.MaxDurationSeconds,
		MergeGapMS:         s.cfg.Timing.MergeGapMS,
		MaxLineChars:       s.cfg.Timing.MaxLineChars,
		MaxLines:           s.cfg.Timing.MaxLines,
	})
	if !media.ValidateCues(cues) {
		return services.Wrap(services.ErrTiming, "refining", "validate cues",
			"refinement produced overlapping cues", nil)
	}

	if err := media.WriteCuesFile(filepath.Join(job.WorkDir, cuesFile), cues); err != nil {
		return services.Wrap(services.ErrTransient, "refining", "write cues", "", err)
	}

	s.logger.Info("timing refinement complete",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("segments", len(translated)),
		logging.Int("cues", len(cues)))
	return nil
}

// HealthCheck always reports ready; refinement has no external dependencies.
func (s *RefineStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("refining")
}

// SerializeStage renders the cue artifact into the requested subtitle
// formats under the output directory.
type SerializeStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSerializeStage wires the serialization stage.
func NewSerializeStage(cfg *config.Config, logger *slog.Logger) *SerializeStage {
	return &SerializeStage{cfg: cfg, logger: logging.WithComponent(logger, "serialize")}
}

// Prepare creates the output directory.
func (s *SerializeStage) Prepare(ctx context.Context, job *queue.Job) error {
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "serializing", "prepare", "create output directory", err)
	}
	return nil
}

// Execute writes one subtitle file per requested format and records the
// paths on the job.
func (s *SerializeStage) Execute(ctx context.Context, job *queue.Job) error {
	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		return err
	}
	cues, err := media.ReadCuesFile(filepath.Join(job.WorkDir, cuesFile))
	if err != nil {
		return services.Wrap(services.ErrValidation, "serializing", "read cues", "", err)
	}

	base := OutputBaseName(job, jobCfg)
	paths := make(map[string]string, len(jobCfg.Formats))
	for _, format := range jobCfg.Formats {
		content, err := Render(cues, format, jobCfg.Style)
		if err != nil {
			return err
		}
		path := filepath.Join(s.cfg.Paths.OutputDir, base+"."+format)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "serializing", "write subtitle file", path, err)
		}
		paths[format] = path
	}

	encoded, err := json.Marshal(paths)
	if err != nil {
		return services.Wrap(services.ErrTransient, "serializing", "encode paths", "", err)
	}
	job.SubtitlePathsJSON = string(encoded)

	s.logger.Info("subtitles written",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("cues", len(cues)),
		logging.String("formats", strings.Join(jobCfg.Formats, ",")))
	return nil
}

// HealthCheck verifies the output directory is writable.
func (s *SerializeStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "serializing"
	if s.cfg.Paths.OutputDir == "" {
		return stage.Unhealthy(name, "paths.output_dir not configured")
	}
	return stage.Healthy(name)
}

// OutputBaseName builds the subtitle file stem from the job title, the
// configured suffix, and the target language code.
func OutputBaseName(job *queue.Job, jobCfg media.JobConfig) string {
	base := strings.TrimSpace(job.Title)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(job.SourcePath), filepath.Ext(job.SourcePath))
	}
	base = sanitizeFileName(base)
	if suffix := strings.TrimSpace(jobCfg.OutputSuffix); suffix != "" {
		base += suffix
	}
	if jobCfg.IncludeLangCode && jobCfg.TargetLang != "" {
		base += "_" + jobCfg.TargetLang
	}
	return base
}

// sanitizeFileName strips path separators and control characters from a
// title so it is safe as a file stem.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('-')
		case r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "subtitles"
	}
	return cleaned
}
