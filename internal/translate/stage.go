package translate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	"github.com/Nexitus/KotoSub/internal/services/llm"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// translationsFile is the artifact name under the job working directory.
const translationsFile = "translations.json"

// Stage translates transcript segments into the target language.
type Stage struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	publisher events.Publisher
	client    Client
}

// NewStage wires the translation stage against the configured LLM endpoint.
func NewStage(store *queue.Store, cfg *config.Config, logger *slog.Logger, publisher events.Publisher) *Stage {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.LLM.RetryMaxAttempts))
	return &Stage{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "translate"),
		publisher: publisher,
		client:    client,
	}
}

// Prepare verifies the transcription artifact exists.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.SegmentsPath == "" {
		return services.Wrap(services.ErrValidation, "translating", "prepare", "job has no segments artifact", nil)
	}
	return nil
}

// Execute translates all segments and persists the translation artifact.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		return err
	}
	segments, err := stage.LoadSegments(job.SegmentsPath)
	if err != nil {
		return err
	}

	opts := Options{
		MaxBatchChars:    s.cfg.Translation.MaxBatchChars,
		MaxBatchSegments: s.cfg.Translation.MaxBatchSegments,
		Concurrency:      s.cfg.Translation.Concurrency,
		ContextSegments:  s.cfg.Translation.ContextSegments,
	}
	if jobCfg.Concurrency > 0 {
		opts.Concurrency = jobCfg.Concurrency
	}

	sourceLang := job.DetectedLanguage
	if sourceLang == "" {
		sourceLang = jobCfg.SourceLang
	}

	translator := NewTranslator(s.client, opts, s.logger)
	translated, err := translator.Translate(ctx, segments, sourceLang, jobCfg.TargetLang, func(completed, total int) {
		percent := float64(completed) / float64(total) * 100
		message := fmt.Sprintf("Translated batch %d of %d", completed, total)
		job.SetProgress(string(queue.StatusTranslating), message, percent)
		if updateErr := s.store.Update(ctx, job); updateErr != nil {
			s.logger.Warn("persist progress", logging.Error(updateErr))
		}
		_ = s.store.UpdateHeartbeat(ctx, job.ID)
		s.publisher.Publish(events.Event{
			JobID:    job.ID,
			Step:     string(queue.StatusTranslating),
			Progress: int(math.Round(percent)),
			Message:  message,
			Status:   events.StatusProcessing,
		})
	})
	if err != nil {
		return err
	}

	path := filepath.Join(job.WorkDir, translationsFile)
	if err := media.WriteTranslationsFile(path, translated); err != nil {
		return services.Wrap(services.ErrTransient, "translating", "write translations", "", err)
	}

	s.logger.Info("translation complete",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("segments", len(translated)),
		logging.String("target", jobCfg.TargetLang))
	return nil
}

// HealthCheck reports whether the LLM endpoint is configured.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "translating"
	if s.cfg.LLM.APIKey == "" {
		return stage.Unhealthy(name, "llm.api_key not configured")
	}
	return stage.Healthy(name)
}

// VerifyStage runs the optional quality pass over translated segments.
type VerifyStage struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	publisher events.Publisher
	client    Client
}

// NewVerifyStage wires the verification stage. It reuses the translation
// endpoint configuration.
func NewVerifyStage(store *queue.Store, cfg *config.Config, logger *slog.Logger, publisher events.Publisher) *VerifyStage {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.LLM.RetryMaxAttempts))
	return &VerifyStage{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "verify"),
		publisher: publisher,
		client:    client,
	}
}

// Prepare verifies the translation artifact exists.
func (s *VerifyStage) Prepare(ctx context.Context, job *queue.Job) error {
	if job.WorkDir == "" {
		return services.Wrap(services.ErrValidation, "verifying", "prepare", "job has no working directory", nil)
	}
	return nil
}

// Execute reviews each translation and rewrites the artifact with
// corrections applied. Failures degrade to unverified translations.
func (s *VerifyStage) Execute(ctx context.Context, job *queue.Job) error {
	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		return err
	}

	path := filepath.Join(job.WorkDir, translationsFile)
	translated, err := media.ReadTranslationsFile(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "verifying", "read translations", "", err)
	}

	sourceLang := job.DetectedLanguage
	if sourceLang == "" {
		sourceLang = jobCfg.SourceLang
	}

	verifier := NewVerifier(s.client, Options{MaxBatchSegments: s.cfg.Translation.MaxBatchSegments}, s.logger)
	reviewed := verifier.Verify(ctx, translated, sourceLang, jobCfg.TargetLang, func(completed, total int) {
		percent := float64(completed) / float64(total) * 100
		message := fmt.Sprintf("Verified batch %d of %d", completed, total)
		job.SetProgress(string(queue.StatusVerifying), message, percent)
		if updateErr := s.store.Update(ctx, job); updateErr != nil {
			s.logger.Warn("persist progress", logging.Error(updateErr))
		}
		_ = s.store.UpdateHeartbeat(ctx, job.ID)
		s.publisher.Publish(events.Event{
			JobID:    job.ID,
			Step:     string(queue.StatusVerifying),
			Progress: int(math.Round(percent)),
			Message:  message,
			Status:   events.StatusProcessing,
		})
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := media.WriteTranslationsFile(path, reviewed); err != nil {
		return services.Wrap(services.ErrTransient, "verifying", "write translations", "", err)
	}
	return nil
}

// HealthCheck mirrors the translation stage; verification shares its
// endpoint.
func (s *VerifyStage) HealthCheck(ctx context.Context) stage.Health {
	const name = "verifying"
	if s.cfg.LLM.APIKey == "" {
		return stage.Unhealthy(name, "llm.api_key not configured")
	}
	return stage.Healthy(name)
}
