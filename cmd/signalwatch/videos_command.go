package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput  bool
		statusFlag  string
		channelFlag string
		limitFlag   int
	)

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List tracked videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				opts := store.ListOptions{
					ChannelID: strings.TrimSpace(channelFlag),
					Limit:     limitFlag,
				}
				if strings.TrimSpace(statusFlag) != "" {
					status, err := store.ParseStatus(statusFlag)
					if err != nil {
						return err
					}
					opts.Status = status
				}

				videos, err := st.ListVideos(cmd.Context(), opts)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, videos)
				}

				if len(videos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No videos match.")
					return nil
				}

				rows := make([][]string, 0, len(videos))
				for _, video := range videos {
					detail := ""
					if video.Status == store.StatusFailed {
						detail = video.FailedStage + ": " + video.LastError
					}
					rows = append(rows, []string{
						video.ID,
						truncateTitle(video.Title, 48),
						string(video.Status),
						video.PublishedAt.Local().Format("2006-01-02"),
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Published", "Detail"},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output videos as JSON")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status")
	cmd.Flags().StringVar(&channelFlag, "channel", "", "Filter by channel ID")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of videos to list")
	return cmd
}

func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-1]) + "…"
}
