package diarize

import (
	"context"
	"log/slog"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// Stage assigns speaker labels to the transcript of a job. The stage only
// runs when the job configuration enables diarization.
type Stage struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	publisher events.Publisher
	provider  Provider
}

// NewStage wires the diarization stage.
func NewStage(store *queue.Store, cfg *config.Config, logger *slog.Logger, publisher events.Publisher) *Stage {
	return &Stage{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "diarize"),
		publisher: publisher,
		provider: NewWhisperX(WhisperXConfig{
			HFToken:     cfg.Diarization.HFToken,
			Model:       cfg.Diarization.Model,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
		}),
	}
}

// Prepare verifies the segment artifact exists.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.SegmentsPath == "" {
		return services.Wrap(services.ErrValidation, "diarizing", "prepare", "no transcript to diarize", nil)
	}
	return nil
}

// Execute runs the diarization provider and rewrites the segment artifact
// with speaker labels.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := stage.LoadSegments(job.SegmentsPath)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		s.logger.Info("no segments to diarize", logging.Int64(logging.FieldJobID, job.ID))
		return nil
	}

	turns, err := s.provider.Turns(ctx, job.AudioPath)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		// Diarization is an enhancement; a provider failure degrades to
		// unlabeled speakers instead of failing the job.
		s.logger.Warn("diarization failed, continuing without speakers",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
		s.publisher.Publish(events.Event{
			JobID:   job.ID,
			Step:    string(queue.StatusDiarizing),
			Message: "Diarization unavailable, speakers left unlabeled",
			Status:  events.StatusProcessing,
		})
		return nil
	}

	segments = AssignSpeakers(segments, turns)
	if err := media.WriteSegmentsFile(job.SegmentsPath, segments); err != nil {
		return services.Wrap(services.ErrTransient, "diarizing", "write segments", "", err)
	}

	labeled := 0
	for _, seg := range segments {
		if seg.Speaker != "" {
			labeled++
		}
	}
	s.logger.Info("diarization complete",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("turns", len(turns)),
		logging.Int("labeled", labeled),
		logging.Int("segments", len(segments)))
	return nil
}

// HealthCheck reports whether diarization is configured.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "diarizing"
	if s.cfg.Diarization.HFToken == "" {
		return stage.Unhealthy(name, "diarization.hf_token not configured")
	}
	return stage.Healthy(name)
}
