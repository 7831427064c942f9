package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/digest"
	"signalwatch/internal/logging"
	"signalwatch/internal/store"
)

func newDigestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Generate the daily digest from recently enriched videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					logger = logging.NewNop()
				}
				builder := digest.NewBuilder(cfg, st, logger)

				date := time.Now()
				if dateFlag != "" {
					date, err = time.Parse("2006-01-02", dateFlag)
					if err != nil {
						return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", dateFlag)
					}
				}

				d, err := builder.Build(cmd.Context(), date)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, d)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Digest for %s written with %d videos (window %dh)\n",
					d.Date, d.VideoCount, d.WindowHours)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the digest as JSON")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Digest date (YYYY-MM-DD, defaults to today)")
	return cmd
}
