package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nexitus/KotoSub/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [JOB]",
		Short: "Show daemon health, or the state of one job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showJob(ctx, cmd, args[0])
			}
			return showDaemonStatus(ctx, cmd)
		},
	}
}

func showJob(ctx *commandContext, cmd *cobra.Command, ref string) error {
	var job jobView
	if err := ctx.getJSON("/api/jobs/"+ref, &job); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:      %d (%s)\n", job.ID, job.Token)
	if job.Title != "" {
		fmt.Fprintf(out, "Title:    %s\n", job.Title)
	}
	fmt.Fprintf(out, "Status:   %s\n", job.Status)
	if job.DetectedLanguage != "" {
		fmt.Fprintf(out, "Language: %s\n", job.DetectedLanguage)
	}
	if job.ProgressStage != "" {
		fmt.Fprintf(out, "Progress: %s %.0f%% %s\n", job.ProgressStage, job.ProgressPercent, job.ProgressMessage)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s (%s)\n", job.ErrorMessage, job.ErrorKind)
	}
	for format, path := range job.Subtitles {
		fmt.Fprintf(out, "Subtitle: %s (%s)\n", path, format)
	}
	if job.VideoOutput != "" {
		fmt.Fprintf(out, "Video:    %s\n", job.VideoOutput)
	}
	return nil
}

func showDaemonStatus(ctx *commandContext, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	var health struct {
		Ready  bool `json:"ready"`
		Checks []struct {
			Name   string `json:"name"`
			Ready  bool   `json:"ready"`
			Detail string `json:"detail"`
		} `json:"checks"`
	}
	healthErr := ctx.getJSON("/healthz", &health)

	rows := make([][]string, 0, 8)
	if healthErr != nil {
		rows = append(rows, []string{"Daemon", "down", healthErr.Error()})
	} else {
		state := "ready"
		if !health.Ready {
			state = "degraded"
		}
		rows = append(rows, []string{"Daemon", state, ""})
		for _, check := range health.Checks {
			state := "ok"
			if !check.Ready {
				state = "failed"
			}
			rows = append(rows, []string{check.Name, state, check.Detail})
		}
	}

	if cfg, err := ctx.ensureConfig(); err == nil {
		for _, check := range preflight.CheckEnvironment(cfg) {
			state := "ok"
			if !check.Passed {
				state = "failed"
			}
			rows = append(rows, []string{check.Name, state, check.Detail})
		}
	}

	table := renderTable(
		[]tableColumn{
			{header: "Check"},
			{header: "State"},
			{header: "Detail", maxWidth: 60},
		},
		rows,
	)
	fmt.Fprintln(out, table)
	return nil
}
