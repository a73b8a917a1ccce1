package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// Handlers collects the stage implementations the manager sequences. Every
// field is required except the optional stages, which may be nil only when
// no job configuration can enable them.
type Handlers struct {
	Validate   stage.Handler
	Extract    stage.Handler
	Transcribe stage.Handler
	Diarize    stage.Handler
	Translate  stage.Handler
	Verify     stage.Handler
	Refine     stage.Handler
	Serialize  stage.Handler
	Mux        stage.Handler
}

// stageDef binds a queue status to its handler and skip rule.
type stageDef struct {
	status  queue.Status
	handler stage.Handler
	skip    func(media.JobConfig) bool
}

// cancelCheckInterval is how often a running job re-reads its cancel flag.
const cancelCheckInterval = time.Second

// Manager owns the processing lane: it claims pending jobs one at a time
// and is the only writer of job state while a job runs.
type Manager struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier events.Publisher
	stages   []stageDef

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager assembles the manager with its stage sequence.
func NewManager(store *queue.Store, cfg *config.Config, logger *slog.Logger, notifier events.Publisher, handlers Handlers) *Manager {
	return &Manager{
		store:    store,
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "workflow"),
		notifier: notifier,
		stages: []stageDef{
			{status: queue.StatusValidating, handler: handlers.Validate},
			{status: queue.StatusExtracting, handler: handlers.Extract},
			{status: queue.StatusTranscribing, handler: handlers.Transcribe},
			{status: queue.StatusDiarizing, handler: handlers.Diarize,
				skip: func(c media.JobConfig) bool { return !c.EnableDiarization }},
			{status: queue.StatusTranslating, handler: handlers.Translate},
			{status: queue.StatusVerifying, handler: handlers.Verify,
				skip: func(c media.JobConfig) bool { return !c.QualityVerification }},
			{status: queue.StatusRefining, handler: handlers.Refine},
			{status: queue.StatusSerializing, handler: handlers.Serialize},
			{status: queue.StatusMuxing, handler: handlers.Mux,
				skip: func(c media.JobConfig) bool { return !c.BurnSubtitles }},
		},
	}
}

// Start launches the polling loop. Jobs left in a processing status by a
// previous run are reset to pending first so they re-run from the top.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("workflow manager already started")
	}

	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		return fmt.Errorf("reset stuck jobs: %w", err)
	} else if reset > 0 {
		m.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true
	go m.run(runCtx)
	return nil
}

// Stop halts polling and waits for the in-flight job to wind down.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.started = false
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	interval := time.Duration(m.cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.processNext(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processNext claims and runs at most one pending job.
func (m *Manager) processNext(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	job, err := m.store.NextPending(ctx)
	if err != nil {
		m.logger.Error("poll queue", logging.Error(err))
		return
	}
	if job == nil {
		return
	}
	m.runJob(ctx, job)
}

func (m *Manager) runJob(ctx context.Context, job *queue.Job) {
	logger := m.logger.With(logging.Int64(logging.FieldJobID, job.ID))
	logger.Info("job started", logging.String("source", job.SourcePath))

	jobCfg, err := stage.JobConfig(job.ConfigJSON)
	if err != nil {
		m.failJob(ctx, job, err)
		return
	}

	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	stopWatch := m.watchCancellation(jobCtx, job.ID, cancelJob)
	defer stopWatch()

	for _, def := range m.stages {
		if def.skip != nil && def.skip(jobCfg) {
			continue
		}
		if cancelled, err := m.cancellationRequested(ctx, job.ID); err != nil {
			m.failJob(ctx, job, err)
			return
		} else if cancelled {
			m.cancelJob(ctx, job)
			return
		}

		if err := m.runStage(jobCtx, def, job); err != nil {
			if jobCtx.Err() != nil {
				// Either a shutdown or a cancel request interrupted the
				// stage; a shutdown leaves the job for the restart reset.
				if cancelled, checkErr := m.cancellationRequested(ctx, job.ID); checkErr == nil && cancelled {
					m.cancelJob(ctx, job)
				}
				return
			}
			m.failJob(ctx, job, err)
			return
		}
	}

	m.completeJob(ctx, job, jobCfg)
}

// runStage transitions the job into the stage's status, then runs Prepare
// and Execute.
func (m *Manager) runStage(ctx context.Context, def stageDef, job *queue.Job) error {
	if def.handler == nil {
		return services.Wrap(services.ErrConfiguration, string(def.status), "select handler",
			"stage has no configured handler", nil)
	}
	job.Status = def.status
	job.SetProgress(string(def.status), fmt.Sprintf("Stage %s started", def.status), 0)
	if err := m.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrTransient, string(def.status), "persist status", "", err)
	}
	_ = m.store.UpdateHeartbeat(ctx, job.ID)
	m.notifier.Publish(events.Event{
		JobID:   job.ID,
		Step:    string(def.status),
		Message: fmt.Sprintf("Stage %s started", def.status),
		Status:  events.StatusProcessing,
	})

	if err := def.handler.Prepare(ctx, job); err != nil {
		return err
	}
	if err := def.handler.Execute(ctx, job); err != nil {
		return err
	}

	job.SetProgress(string(def.status), fmt.Sprintf("Stage %s finished", def.status), 100)
	if err := m.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrTransient, string(def.status), "persist result", "", err)
	}
	m.notifier.Publish(events.Event{
		JobID:    job.ID,
		Step:     string(def.status),
		Progress: 100,
		Message:  fmt.Sprintf("Stage %s finished", def.status),
		Status:   events.StatusProcessing,
	})
	m.logger.Debug("stage finished",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, string(def.status)))
	return nil
}

// watchCancellation polls the job row and cancels the stage context when a
// cancel request lands mid-stage. The returned func stops the watcher.
func (m *Manager) watchCancellation(ctx context.Context, jobID int64, cancel context.CancelFunc) func() {
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(cancelCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if cancelled, err := m.cancellationRequested(ctx, jobID); err == nil && cancelled {
					cancel()
					return
				}
			}
		}
	}()
	return func() { once.Do(func() { close(stop) }) }
}

func (m *Manager) cancellationRequested(ctx context.Context, jobID int64) (bool, error) {
	fresh, err := m.store.GetByID(ctx, jobID)
	if err != nil || fresh == nil {
		return false, err
	}
	return fresh.CancelRequested, nil
}

// jobResult is the payload of the terminal completed event.
type jobResult struct {
	Subtitles map[string]string `json:"subtitles"`
	Video     string            `json:"video,omitempty"`
	Language  string            `json:"language,omitempty"`
}

func (m *Manager) completeJob(ctx context.Context, job *queue.Job, jobCfg media.JobConfig) {
	result := jobResult{Language: job.DetectedLanguage, Video: job.VideoOutput}
	if job.SubtitlePathsJSON != "" {
		if err := json.Unmarshal([]byte(job.SubtitlePathsJSON), &result.Subtitles); err != nil {
			m.failJob(ctx, job, services.Wrap(services.ErrTiming, "completing", "decode subtitle paths", "", err))
			return
		}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		m.failJob(ctx, job, err)
		return
	}

	job.Status = queue.StatusCompleted
	job.SetProgress(string(queue.StatusCompleted), "Job completed", 100)
	job.ErrorMessage = ""
	job.ErrorKind = ""
	if err := m.store.Update(ctx, job); err != nil {
		m.logger.Error("persist completion", logging.Error(err))
	}
	m.notifier.Publish(events.Event{
		JobID:    job.ID,
		Step:     "job",
		Progress: 100,
		Message:  "Job completed",
		Status:   events.StatusCompleted,
		Result:   payload,
	})
	m.cleanupWorkDir(job)
	m.logger.Info("job completed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("language", job.DetectedLanguage))
}

func (m *Manager) failJob(ctx context.Context, job *queue.Job, cause error) {
	kind := services.FailureKind(cause)
	job.SetFailed(cause.Error(), kind)
	if err := m.store.Update(ctx, job); err != nil {
		m.logger.Error("persist failure", logging.Error(err))
	}
	m.notifier.Publish(events.Event{
		JobID:   job.ID,
		Step:    "job",
		Message: cause.Error(),
		Status:  events.StatusError,
	})
	m.logger.Error("job failed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("kind", kind),
		logging.Error(cause))
}

func (m *Manager) cancelJob(ctx context.Context, job *queue.Job) {
	job.SetCancelled()
	if err := m.store.Update(ctx, job); err != nil {
		m.logger.Error("persist cancellation", logging.Error(err))
	}
	m.notifier.Publish(events.Event{
		JobID:   job.ID,
		Step:    "job",
		Message: "Job cancelled",
		Status:  events.StatusCancelled,
	})
	m.cleanupWorkDir(job)
	m.logger.Info("job cancelled", logging.Int64(logging.FieldJobID, job.ID))
}

// cleanupWorkDir removes the per-job scratch directory. Failed jobs keep
// theirs for diagnostics.
func (m *Manager) cleanupWorkDir(job *queue.Job) {
	if job.WorkDir == "" {
		return
	}
	if err := os.RemoveAll(job.WorkDir); err != nil {
		m.logger.Warn("remove work directory", logging.Error(err))
	}
}
