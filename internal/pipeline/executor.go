package pipeline

import (
	"context"
	"log/slog"
	"time"

	"signalwatch/internal/logging"
	"signalwatch/internal/stage"
	"signalwatch/internal/store"
)

type videoCounters struct {
	transcript store.StageCounters
	summary    store.StageCounters
}

func (c *videoCounters) forStage(name string) *store.StageCounters {
	if name == store.StageSummary {
		return &c.summary
	}
	return &c.transcript
}

// processVideo drives one video through every stage it is still eligible
// for. A transient failure ends the video's participation in this run; a
// permanent failure moves it to the failed state.
func (p *Pipeline) processVideo(ctx context.Context, logger *slog.Logger, video *store.Video) videoCounters {
	var counters videoCounters
	videoLogger := logger.With(logging.String(logging.FieldVideoID, video.ID))

	for !video.Status.Terminal() {
		if ctx.Err() != nil {
			return counters
		}
		spec, ok := p.stageFor(video.Status)
		if !ok {
			videoLogger.Warn("no stage services status", logging.String(logging.FieldStatus, string(video.Status)))
			return counters
		}

		// Persist the pending state before doing work so a crash leaves the
		// video resumable at exactly this stage.
		if video.Status != spec.pendingStatus {
			video.Status = spec.pendingStatus
			if err := p.store.UpdateVideo(ctx, video); err != nil {
				videoLogger.Error("failed to persist pending transition", logging.Error(err))
				return counters
			}
		}

		stageCounter := counters.forStage(spec.name)
		stageCounter.Attempted++

		outcome := p.executeStage(ctx, videoLogger, spec, video)
		switch outcome.Kind {
		case stage.KindSuccess:
			stageCounter.Succeeded++
			video.Status = spec.doneStatus
			video.LastError = ""
			if spec.doneStatus == store.StatusEnriched {
				now := time.Now().UTC()
				video.EnrichedAt = &now
			}
		case stage.KindTransient:
			stageCounter.TransientFailed++
			video.BumpRetry(spec.name)
			video.LastError = outcome.Reason
			videoLogger.Warn("stage deferred to a later run",
				logging.String(logging.FieldStage, spec.name),
				logging.String("reason", outcome.Reason))
		case stage.KindPermanent:
			stageCounter.PermanentFailed++
			video.SetFailed(spec.name, outcome.Reason)
			videoLogger.Error("stage failed permanently",
				logging.String(logging.FieldStage, spec.name),
				logging.String("reason", outcome.Reason))
		}

		if err := p.store.UpdateVideo(ctx, video); err != nil {
			videoLogger.Error("failed to persist stage result", logging.Error(err))
			return counters
		}
		if outcome.Failed() {
			return counters
		}
		videoLogger.Info("stage completed",
			logging.String(logging.FieldStage, spec.name),
			logging.String(logging.FieldStatus, string(video.Status)))
	}
	return counters
}

// executeStage runs one stage with bounded in-run retry. Each attempt gets
// its own timeout; transient outcomes are retried after a doubling backoff
// until the attempt budget is spent, then reported as transient.
func (p *Pipeline) executeStage(ctx context.Context, logger *slog.Logger, spec stageSpec, video *store.Video) stage.Outcome {
	attempts := p.cfg.Workflow.StageAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(p.cfg.Workflow.RetryBackoffMillis) * time.Millisecond
	stageTimeout := time.Duration(p.cfg.Workflow.StageTimeoutSeconds) * time.Second

	var outcome stage.Outcome
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if stageTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, stageTimeout)
		}
		outcome = spec.handler.Execute(attemptCtx, video)
		if cancel != nil {
			cancel()
		}

		if outcome.Kind != stage.KindTransient || attempt == attempts {
			return outcome
		}
		logger.Debug("retrying stage after transient failure",
			logging.String(logging.FieldStage, spec.name),
			logging.Int("attempt", attempt),
			logging.String("reason", outcome.Reason))
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return outcome
			case <-timer.C:
			}
			backoff *= 2
		}
	}
	return outcome
}
