package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPodcastCommand(ctx *commandContext) *cobra.Command {
	podcastCmd := &cobra.Command{
		Use:   "podcast",
		Short: "Manage podcast subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	podcastCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscribed podcasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			podcasts, err := ctx.client().Podcasts(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(podcasts))
			for _, podcast := range podcasts {
				rows = append(rows, []string{
					strconv.FormatInt(podcast.ID, 10),
					podcast.Title,
					podcast.Author,
					podcast.FeedURL,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Author", "Feed"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	})

	podcastCmd.AddCommand(&cobra.Command{
		Use:   "add <feed-url>",
		Short: "Subscribe to a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			podcast, err := ctx.client().AddPodcast(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %q (id %d)\n", podcast.Title, podcast.ID)
			return nil
		},
	})

	podcastCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Unsubscribe and delete a podcast's episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := ctx.client().RemovePodcast(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed podcast %d\n", id)
			return nil
		},
	})

	podcastCmd.AddCommand(&cobra.Command{
		Use:   "sync <id>",
		Short: "Refresh a podcast feed now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			added, err := ctx.client().SyncPodcast(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d new episode(s)\n", added)
			return nil
		},
	})

	podcastCmd.AddCommand(&cobra.Command{
		Use:   "redetect-ads <id>",
		Short: "Re-run ad detection on a podcast's ready episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			queued, err := ctx.client().RedetectAds(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d episode(s) for detection\n", queued)
			return nil
		},
	})

	return podcastCmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
