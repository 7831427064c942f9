package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List watched channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if err := st.SyncChannels(cmd.Context(), cfg.Channels); err != nil {
					return err
				}
				channels, err := st.ListChannels(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, channels)
				}

				rows := make([][]string, 0, len(channels))
				for _, channel := range channels {
					rows = append(rows, []string{
						channel.ID,
						channel.Name,
						channel.Domain,
						strconv.Itoa(channel.Priority),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Domain", "Priority"},
					rows,
					3,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output channels as JSON")
	return cmd
}
