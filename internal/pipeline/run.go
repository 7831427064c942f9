package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"signalwatch/internal/logging"
	"signalwatch/internal/store"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Run executes one full poll-and-enrich cycle. Only one run may be active at
// a time per process; overlapping triggers are rejected. The returned run
// record is already finalized and persisted.
func (p *Pipeline) Run(ctx context.Context, trigger store.Trigger) (*store.Run, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	timeout := time.Duration(p.cfg.Workflow.RunTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.store.SyncChannels(runCtx, p.cfg.Channels); err != nil {
		return nil, fmt.Errorf("sync channels: %w", err)
	}

	run, err := p.store.BeginRun(runCtx, trigger)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With(logging.String(logging.FieldRunID, run.ID))
	logger.Info("run started", logging.String("trigger", string(trigger)))

	p.discover(runCtx, logger, run)

	worklist, err := p.store.VideosByStatus(runCtx, store.ActiveStatuses()...)
	if err != nil {
		run.Status = store.RunAborted
		run.ErrorMessage = fmt.Sprintf("load worklist: %v", err)
		_ = p.store.FinalizeRun(context.WithoutCancel(ctx), run)
		return run, fmt.Errorf("load worklist: %w", err)
	}

	p.processWorklist(runCtx, logger, run, worklist)

	if runCtx.Err() != nil && run.Status == store.RunInProgress {
		run.Status = store.RunPartial
		run.ErrorMessage = "run deadline exceeded"
	}
	// Finalize with the parent context so a deadline hit does not lose the
	// run record.
	if err := p.store.FinalizeRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to finalize run", logging.Error(err))
		return run, err
	}

	logger.Info("run finished",
		logging.String(logging.FieldStatus, string(run.Status)),
		logging.Int("fetched", run.Fetched),
		logging.Int("discovered", run.Discovered),
		logging.Int("already_known", run.AlreadyKnown),
		logging.Int("channels_failed", run.ChannelsFailed),
		logging.Int("transcripts_succeeded", run.Transcript.Succeeded),
		logging.Int("summaries_succeeded", run.Summary.Succeeded),
		logging.Duration("run_duration", run.Duration()),
	)
	if err := p.notifier.NotifyRunCompleted(ctx, run); err != nil {
		logger.Warn("run notification failed", logging.Error(err))
	}
	return run, nil
}

// processWorklist drives every eligible video through its remaining stages
// with a bounded worker pool.
func (p *Pipeline) processWorklist(ctx context.Context, logger *slog.Logger, run *store.Run, worklist []*store.Video) {
	if len(worklist) == 0 {
		return
	}
	workers := p.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(worklist) {
		workers = len(worklist)
	}

	jobs := make(chan *store.Video)
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for video := range jobs {
				counters := p.processVideo(ctx, logger, video)
				mu.Lock()
				run.Transcript.Add(counters.transcript)
				run.Summary.Add(counters.summary)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, video := range worklist {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- video:
		}
	}
	close(jobs)
	wg.Wait()
}
