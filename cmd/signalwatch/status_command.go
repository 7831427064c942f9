package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show video counts by status and recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				runs, err := st.ListRuns(cmd.Context(), 5)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"videos": stats,
						"runs":   runs,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Videos:")
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					statusRows(stats),
					1,
				))

				fmt.Fprintln(out, "Recent runs:")
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Trigger", "Status", "Discovered", "Enriched", "Failures", "Duration"},
					runRows(runs),
					3, 4, 5, 6,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

func statusRows(stats map[store.Status]int) [][]string {
	ordered := []store.Status{
		store.StatusDiscovered,
		store.StatusTranscriptPending,
		store.StatusTranscriptReady,
		store.StatusSummaryPending,
		store.StatusEnriched,
		store.StatusFailed,
	}
	rows := make([][]string, 0, len(ordered))
	for _, status := range ordered {
		rows = append(rows, []string{string(status), strconv.Itoa(stats[status])})
	}
	return rows
}

func runRows(runs []*store.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		failures := run.Transcript.TransientFailed + run.Transcript.PermanentFailed +
			run.Summary.TransientFailed + run.Summary.PermanentFailed
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Trigger),
			string(run.Status),
			strconv.Itoa(run.Discovered),
			strconv.Itoa(run.Summary.Succeeded),
			strconv.Itoa(failures),
			run.Duration().Round(time.Second).String(),
		})
	}
	return rows
}
