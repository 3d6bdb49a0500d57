package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"podpirate/internal/daemonctl"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:   "episode",
		Short: "Inspect and control individual episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var statusFilter string
	var podcastFilter int64
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				episodes []daemonctl.Episode
				err      error
			)
			if podcastFilter > 0 {
				episodes, err = ctx.client().PodcastEpisodes(cmd.Context(), podcastFilter)
			} else {
				episodes, err = ctx.client().Episodes(cmd.Context(), statusFilter)
			}
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(episodes))
			for _, episode := range episodes {
				rows = append(rows, []string{
					strconv.FormatInt(episode.ID, 10),
					strconv.FormatInt(episode.PodcastID, 10),
					truncate(episode.Title, 48),
					episode.Status,
					formatPublished(episode.PublishedAt),
					formatDuration(episode.DurationSeconds),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Podcast", "Title", "Status", "Published", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, ready, error, ...)")
	listCmd.Flags().Int64Var(&podcastFilter, "podcast", 0, "Filter by podcast id")
	episodeCmd.AddCommand(listCmd)

	actions := []struct {
		use    string
		action string
		short  string
	}{
		{"download <id>", "download", "Queue the episode for download"},
		{"prioritize <id>", "prioritize", "Move the episode to the front of every queue"},
		{"reprocess <id>", "reprocess", "Re-cut the episode audio from stored ad segments"},
		{"detect-ads <id>", "detect-ads", "Re-run ad detection for the episode"},
	}
	for _, entry := range actions {
		action := entry.action
		episodeCmd.AddCommand(&cobra.Command{
			Use:   entry.use,
			Short: entry.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := ctx.client().EpisodeAction(cmd.Context(), id, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode %d queued\n", id)
				return nil
			},
		})
	}

	return episodeCmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatPublished(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02")
}

func formatDuration(seconds *float64) string {
	if seconds == nil || *seconds <= 0 {
		return "-"
	}
	d := time.Duration(*seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
