package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/language"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// Prober reports stream information for a media file.
type Prober interface {
	Probe(ctx context.Context, source string) (ffmpegsvc.MediaInfo, error)
}

// Stage transcribes the extracted audio track into timed segments.
type Stage struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	publisher events.Publisher
	prober    Prober
	cutter    AudioCutter
	api       Provider
	local     Provider
}

// NewStage wires the transcription stage with both providers configured from
// the server config.
func NewStage(store *queue.Store, cfg *config.Config, logger *slog.Logger, publisher events.Publisher, svc *ffmpegsvc.Service) *Stage {
	return &Stage{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "transcription"),
		publisher: publisher,
		prober:    svc,
		cutter:    svc,
		api: NewWhisperClient(WhisperConfig{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		}),
		local: NewWhisperX(WhisperXConfig{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
		}),
	}
}

// Prepare creates the chunk working directory for the job.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.WorkDir == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "prepare", "job has no working directory", nil)
	}
	if err := os.MkdirAll(filepath.Join(job.WorkDir, "chunks"), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "prepare", "create chunk directory", err)
	}
	return nil
}

// Execute runs chunked transcription and persists the segment artifact.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		return err
	}

	provider := s.providerFor(jobCfg.TranscriberProvider)
	if provider == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "select provider",
			fmt.Sprintf("provider %q unavailable", jobCfg.TranscriberProvider), nil)
	}

	info, err := s.prober.Probe(ctx, job.AudioPath)
	if err != nil {
		return services.Wrap(services.ErrTranscription, "transcribing", "probe audio", "", err)
	}

	hint := jobCfg.SourceLang
	if job.DetectedLanguage != "" {
		// A resumed job keeps the language resolved on the first run.
		hint = job.DetectedLanguage
	}

	chunker := NewChunker(provider, s.cutter, ChunkerConfig{
		ChunkSeconds:        s.cfg.Transcription.ChunkSeconds,
		OverlapSeconds:      s.cfg.Transcription.ChunkOverlapSeconds,
		DetectWindowSeconds: s.cfg.Transcription.DetectWindowSeconds,
		WorkDir:             filepath.Join(job.WorkDir, "chunks"),
	}, s.logger)

	result, err := chunker.Run(ctx, job.AudioPath, info.DurationSeconds, hint, func(completed, total int) {
		percent := float64(completed) / float64(total) * 100
		message := fmt.Sprintf("Transcribed chunk %d of %d", completed, total)
		job.SetProgress(string(queue.StatusTranscribing), message, percent)
		if updateErr := s.store.Update(ctx, job); updateErr != nil {
			s.logger.Warn("persist progress", logging.Error(updateErr))
		}
		_ = s.store.UpdateHeartbeat(ctx, job.ID)
		s.publisher.Publish(events.Event{
			JobID:    job.ID,
			Step:     string(queue.StatusTranscribing),
			Progress: int(math.Round(percent)),
			Message:  message,
			Status:   events.StatusProcessing,
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrTranscription, "transcribing", "run chunker", "", err)
	}

	segmentsPath := filepath.Join(job.WorkDir, "segments.json")
	if err := media.WriteSegmentsFile(segmentsPath, result.Segments); err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "write segments", "", err)
	}

	job.SegmentsPath = segmentsPath
	if result.Language != "" {
		job.DetectedLanguage = result.Language
	} else if normalized := language.Normalize(jobCfg.SourceLang); normalized != "" && normalized != language.Auto {
		job.DetectedLanguage = normalized
	}

	s.logger.Info("transcription complete",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("segments", len(result.Segments)),
		logging.String("language", job.DetectedLanguage),
		logging.String("provider", provider.Name()))
	return nil
}

// HealthCheck reports whether the configured default provider is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcribing"
	if s.cfg.Transcription.Provider == media.ProviderWhisperAPI && s.cfg.Transcription.APIKey == "" {
		return stage.Unhealthy(name, "transcription.api_key not configured")
	}
	return stage.Healthy(name)
}

func (s *Stage) providerFor(name string) Provider {
	switch name {
	case media.ProviderWhisperAPI:
		return s.api
	case media.ProviderWhisperX:
		return s.local
	default:
		return nil
	}
}
