package main

import (
	"fmt"
	"strings"
)

// jobView mirrors the daemon's job representation.
type jobView struct {
	ID               int64             `json:"id"`
	Token            string            `json:"token"`
	Title            string            `json:"title"`
	Status           string            `json:"status"`
	DetectedLanguage string            `json:"detectedLanguage"`
	ProgressStage    string            `json:"progressStage"`
	ProgressPercent  float64           `json:"progressPercent"`
	ProgressMessage  string            `json:"progressMessage"`
	ErrorMessage     string            `json:"errorMessage"`
	ErrorKind        string            `json:"errorKind"`
	Subtitles        map[string]string `json:"subtitles"`
	VideoOutput      string            `json:"videoOutput"`
	CreatedAt        string            `json:"createdAt"`
	UpdatedAt        string            `json:"updatedAt"`
}

func buildJobRows(jobs []jobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		progress := fmt.Sprintf("%.0f%%", job.ProgressPercent)
		if job.ProgressStage != "" {
			progress = fmt.Sprintf("%s %s", job.ProgressStage, progress)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			truncate(job.Title, 40),
			job.Status,
			progress,
			job.CreatedAt,
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return strings.TrimSpace(value[:limit-3]) + "..."
}
