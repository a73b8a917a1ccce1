package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List translation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for _, status := range statuses {
				query.Add("status", status)
			}
			path := "/api/jobs"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var payload struct {
				Jobs []jobView `json:"jobs"`
			}
			if err := ctx.getJSON(path, &payload); err != nil {
				return err
			}
			if len(payload.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}

			table := renderTable(
				[]tableColumn{
					{header: "ID", numeric: true},
					{header: "Title"},
					{header: "Status"},
					{header: "Progress"},
					{header: "Created"},
				},
				buildJobRows(payload.Jobs),
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}
