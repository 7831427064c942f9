package pipeline

import (
	"context"
	"log/slog"
	"time"

	"signalwatch/internal/dedup"
	"signalwatch/internal/logging"
	"signalwatch/internal/store"
)

// discover polls every configured channel and inserts newly seen videos.
// A channel whose feed cannot be fetched or parsed is counted and skipped;
// it never stops the rest of the run.
func (p *Pipeline) discover(ctx context.Context, logger *slog.Logger, run *store.Run) {
	maxPerPoll := p.cfg.Workflow.MaxVideosPerPoll
	for _, channel := range p.cfg.ChannelsByPriority() {
		if ctx.Err() != nil {
			return
		}
		channelLogger := logger.With(logging.String(logging.FieldChannel, channel.ID))

		entries, err := p.source.Fetch(ctx, channel.ID)
		if err != nil {
			run.ChannelsFailed++
			channelLogger.Warn("channel feed unavailable, skipping this run", logging.Error(err))
			if notifyErr := p.notifier.NotifyError(ctx, err, "channel "+channel.Name); notifyErr != nil {
				channelLogger.Debug("error notification failed", logging.Error(notifyErr))
			}
			continue
		}
		if maxPerPoll > 0 && len(entries) > maxPerPoll {
			entries = entries[:maxPerPoll]
		}

		known, err := p.store.KnownIDs(ctx, channel.ID)
		if err != nil {
			run.ChannelsFailed++
			channelLogger.Error("failed to load known videos", logging.Error(err))
			continue
		}

		fresh, seen := dedup.Partition(entries, known)
		// fetched counts distinct entries so it always equals
		// discovered + already_known once the run closes.
		run.Fetched += len(fresh) + len(seen)
		run.AlreadyKnown += len(seen)
		for _, entry := range fresh {
			video := &store.Video{
				ID:          entry.VideoID,
				ChannelID:   channel.ID,
				Title:       entry.Title,
				PublishedAt: entry.Published,
				Status:      store.StatusDiscovered,
			}
			if err := p.store.InsertVideo(ctx, video); err != nil {
				run.Fetched--
				channelLogger.Error("failed to record discovered video",
					logging.String(logging.FieldVideoID, entry.VideoID),
					logging.Error(err))
				continue
			}
			run.Discovered++
			channelLogger.Info("video discovered",
				logging.String(logging.FieldVideoID, entry.VideoID),
				logging.String("title", entry.Title),
				logging.Duration("published_age", time.Since(entry.Published).Round(time.Minute)),
			)
		}
	}
}
