package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/daemon"
	"signalwatch/internal/pipeline"
	"signalwatch/internal/store"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll all watched channels and process new videos now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				lock := flock.New(daemon.LockFile(cfg))
				held, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("check daemon lock: %w", err)
				}
				if !held {
					return fmt.Errorf("signalwatchd is running; trigger a poll through its API instead")
				}
				defer lock.Unlock()

				pipe := ctx.buildPipeline(cfg, st)
				run, err := pipe.Run(cmd.Context(), store.TriggerManual)
				if err != nil {
					if errors.Is(err, pipeline.ErrRunInProgress) {
						return fmt.Errorf("a pipeline run is already in progress")
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				printRun(cmd, run)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run record as JSON")
	return cmd
}

func printRun(cmd *cobra.Command, run *store.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s) finished: %s\n", run.ID, run.Trigger, run.Status)
	fmt.Fprintf(out, "  Duration:        %s\n", run.Duration().Round(10*time.Millisecond))
	fmt.Fprintf(out, "  Fetched:         %d\n", run.Fetched)
	fmt.Fprintf(out, "  Discovered:      %d\n", run.Discovered)
	fmt.Fprintf(out, "  Already known:   %d\n", run.AlreadyKnown)
	fmt.Fprintf(out, "  Channels failed: %d\n", run.ChannelsFailed)
	fmt.Fprintf(out, "  Transcripts:     %d ok / %d transient / %d permanent\n",
		run.Transcript.Succeeded, run.Transcript.TransientFailed, run.Transcript.PermanentFailed)
	fmt.Fprintf(out, "  Summaries:       %d ok / %d transient / %d permanent\n",
		run.Summary.Succeeded, run.Summary.TransientFailed, run.Summary.PermanentFailed)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:           %s\n", run.ErrorMessage)
	}
}
