package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusValidating   Status = "validating"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusDiarizing    Status = "diarizing"
	StatusTranslating  Status = "translating"
	StatusVerifying    Status = "verifying"
	StatusRefining     Status = "refining"
	StatusSerializing  Status = "serializing"
	StatusMuxing       Status = "muxing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// ServerStopReason is the error message set when jobs are failed due to
// server shutdown.
const ServerStopReason = "Server stopped"

var allStatuses = []Status{
	StatusPending,
	StatusValidating,
	StatusExtracting,
	StatusTranscribing,
	StatusDiarizing,
	StatusTranslating,
	StatusVerifying,
	StatusRefining,
	StatusSerializing,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusValidating:   {},
	StatusExtracting:   {},
	StatusTranscribing: {},
	StatusDiarizing:    {},
	StatusTranslating:  {},
	StatusVerifying:    {},
	StatusRefining:     {},
	StatusSerializing:  {},
	StatusMuxing:       {},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Cancelled  int
	Completed  int
}

// Job represents a translation job persisted in SQLite.
type Job struct {
	ID                int64
	Token             string
	SourcePath        string
	Title             string
	Status            Status
	ConfigJSON        string
	DetectedLanguage  string
	WorkDir           string
	AudioPath         string
	SegmentsPath      string
	SubtitlePathsJSON string
	VideoOutput       string
	ErrorMessage      string
	ErrorKind         string
	CancelRequested   bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	LastHeartbeat     *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the status ends the job lifecycle.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SetProgress updates all three progress fields atomically.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message and kind.
func (j *Job) SetFailed(message, kind string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ErrorKind = kind
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "failed"
}

// SetCancelled marks the job as cancelled.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
	j.ProgressStage = "cancelled"
	j.ProgressMessage = "Cancelled by user"
	j.LastHeartbeat = nil
}
