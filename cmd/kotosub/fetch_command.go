package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "fetch JOB",
		Short: "Download the subtitle artifacts of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job jobView
			if err := ctx.getJSON("/api/jobs/"+args[0], &job); err != nil {
				return err
			}
			if len(job.Subtitles) == 0 {
				return fmt.Errorf("job %s has no subtitle artifacts", args[0])
			}

			if destDir == "" {
				destDir = "."
			}
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return err
			}

			for _, remote := range job.Subtitles {
				local := filepath.Join(destDir, filepath.Base(remote))
				if err := ctx.downloadArtifact(remote, local); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", local)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "dir", "d", "", "Directory to save artifacts into (default: current directory)")
	return cmd
}

func (c *commandContext) downloadArtifact(remotePath, localPath string) error {
	endpoint, err := c.apiURL("/api/download?path=" + url.QueryEscape(remotePath))
	if err != nil {
		return err
	}
	resp, err := apiClient.Get(endpoint)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(localPath)
		return err
	}
	return file.Close()
}
