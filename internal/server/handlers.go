package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/queue"
)

// maxUploadBytes caps a submitted video at 32 GiB.
const maxUploadBytes = 32 << 30

// handleTranslate accepts a multipart submission (a "video" file part plus
// an optional "config" JSON part), enqueues the job, and streams its
// progress events as NDJSON until the job reaches a terminal state.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart body required")
		return
	}

	var sourcePath, configJSON string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read multipart: "+err.Error())
			return
		}
		switch part.FormName() {
		case "video":
			sourcePath, err = s.saveUpload(part.FileName(), part)
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error())
				return
			}
		case "config":
			payload, err := io.ReadAll(io.LimitReader(part, 1<<20))
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "read config: "+err.Error())
				return
			}
			configJSON = string(payload)
		}
		_ = part.Close()
	}
	if sourcePath == "" {
		s.writeError(w, http.StatusBadRequest, "video part required")
		return
	}

	jobCfg, err := media.ParseJobConfig([]byte(configJSON))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized, err := jobCfg.Encode()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job, err := s.store.NewJob(r.Context(), sourcePath, normalized)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("job submitted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("source", filepath.Base(sourcePath)))

	s.streamEvents(w, r, job)
}

// saveUpload copies an uploaded video into the upload area under a unique
// name, preserving the original extension for ffmpeg's format detection.
func (s *Server) saveUpload(fileName string, body io.Reader) (string, error) {
	uploadDir := filepath.Join(s.cfg.Paths.WorkDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(fileName)
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	dest := filepath.Join(uploadDir, uuid.NewString()+"_"+base)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// streamEvents writes the job's progress stream as NDJSON until the
// terminal event, the client disconnecting, or server shutdown.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, job *queue.Job) {
	ch, cancel := s.hub.Subscribe(job.ID)
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	encoder := json.NewEncoder(w)

	// Lead with a submission acknowledgement so the client learns the job
	// token before the pipeline starts.
	ack := events.Event{
		Step:    "job",
		Message: fmt.Sprintf("Job %d accepted (token %s)", job.ID, job.Token),
		Status:  events.StatusIdle,
	}
	if err := encoder.Encode(ack); err != nil {
		return
	}
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := encoder.Encode(event); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			if event.Terminal() {
				return
			}
		}
	}
}

// jobView is the API shape of a queue row.
type jobView struct {
	ID               int64             `json:"id"`
	Token            string            `json:"token"`
	Title            string            `json:"title,omitempty"`
	Status           string            `json:"status"`
	DetectedLanguage string            `json:"detectedLanguage,omitempty"`
	ProgressStage    string            `json:"progressStage,omitempty"`
	ProgressPercent  float64           `json:"progressPercent"`
	ProgressMessage  string            `json:"progressMessage,omitempty"`
	ErrorMessage     string            `json:"errorMessage,omitempty"`
	ErrorKind        string            `json:"errorKind,omitempty"`
	Subtitles        map[string]string `json:"subtitles,omitempty"`
	VideoOutput      string            `json:"videoOutput,omitempty"`
	CreatedAt        string            `json:"createdAt"`
	UpdatedAt        string            `json:"updatedAt"`
}

func viewOf(job *queue.Job) jobView {
	view := jobView{
		ID:               job.ID,
		Token:            job.Token,
		Title:            job.Title,
		Status:           string(job.Status),
		DetectedLanguage: job.DetectedLanguage,
		ProgressStage:    job.ProgressStage,
		ProgressPercent:  job.ProgressPercent,
		ProgressMessage:  job.ProgressMessage,
		ErrorMessage:     job.ErrorMessage,
		ErrorKind:        job.ErrorKind,
		VideoOutput:      job.VideoOutput,
		CreatedAt:        job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:        job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.SubtitlePathsJSON != "" {
		_ = json.Unmarshal([]byte(job.SubtitlePathsJSON), &view.Subtitles)
	}
	return view
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		if status, ok := queue.ParseStatus(value); ok {
			statuses = append(statuses, status)
		}
	}
	jobs, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewOf(job))
	}
	s.writeJSON(w, http.StatusOK, map[string][]jobView{"jobs": views})
}

// handleJob serves /api/jobs/{id-or-token}, /api/jobs/{id}/events, and
// /api/jobs/{id}/cancel.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	ref, action, _ := strings.Cut(rest, "/")
	if ref == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.lookupJob(r, ref)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.writeJSON(w, http.StatusOK, viewOf(job))
	case "events":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if queue.IsTerminal(job.Status) {
			// The stream is gone; report the stored terminal state.
			s.writeJSON(w, http.StatusOK, viewOf(job))
			return
		}
		s.streamEvents(w, r, job)
	case "cancel":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		ok, err := s.store.RequestCancel(r.Context(), job.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			s.writeError(w, http.StatusConflict, "job is not cancellable")
			return
		}
		// A pending job is cancelled immediately, so its event stream has to
		// be terminated here; a running job gets its terminal event from the
		// worker when it observes the flag.
		if updated, err := s.store.GetByID(r.Context(), job.ID); err == nil &&
			updated != nil && updated.Status == queue.StatusCancelled {
			s.hub.Publish(events.Event{
				JobID:   job.ID,
				Step:    "job",
				Message: "Job cancelled",
				Status:  events.StatusCancelled,
			})
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
	default:
		s.writeError(w, http.StatusNotFound, "unknown action")
	}
}

func (s *Server) lookupJob(r *http.Request, ref string) (*queue.Job, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.store.GetByID(r.Context(), id)
	}
	return s.store.GetByToken(r.Context(), ref)
}

// handleDownload serves a finished artifact. Only paths inside the output
// directory are reachable.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	requested := r.URL.Query().Get("path")
	if requested == "" {
		s.writeError(w, http.StatusBadRequest, "path parameter required")
		return
	}

	outputRoot, err := filepath.Abs(s.cfg.Paths.OutputDir)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resolved, err := filepath.Abs(requested)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if resolved != outputRoot && !strings.HasPrefix(resolved, outputRoot+string(os.PathSeparator)) {
		s.writeError(w, http.StatusForbidden, "path outside output directory")
		return
	}
	if info, err := os.Stat(resolved); err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(resolved)))
	http.ServeFile(w, r, resolved)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	checks := s.health.Health(r.Context())
	ready := true
	for _, check := range checks {
		if !check.Ready {
			ready = false
			break
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
