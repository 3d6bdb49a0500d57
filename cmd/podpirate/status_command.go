package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podpirate/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and episode counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()

			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episodes: %d   Detection paused: %s\n\n", stats.Episodes, yesNo(stats.AIPaused))

			statusRows := make([][]string, 0, len(stats.ByStatus))
			for _, status := range store.AllStatuses() {
				count, ok := stats.ByStatus[string(status)]
				if !ok {
					continue
				}
				statusRows = append(statusRows, []string{string(status), strconv.Itoa(count)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				statusRows,
				[]columnAlignment{alignLeft, alignRight},
			))

			healthRows := make([][]string, 0, len(health.Stages))
			for _, stageHealth := range health.Stages {
				healthRows = append(healthRows, []string{
					stageHealth.Name,
					yesNo(stageHealth.Ready),
					stageHealth.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Ready", "Detail"},
				healthRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
