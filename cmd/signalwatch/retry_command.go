package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "retry <video-id>",
		Short: "Reset a permanently failed video so the next run retries it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				pipe := ctx.buildPipeline(cfg, st)
				video, err := pipe.RetryVideo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, video)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Video %s queued for retry (status: %s)\n",
					video.ID, video.Status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the video record as JSON")
	return cmd
}
