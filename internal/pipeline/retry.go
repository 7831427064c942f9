package pipeline

import (
	"context"
	"fmt"

	"signalwatch/internal/logging"
	"signalwatch/internal/services"
	"signalwatch/internal/store"
)

// RetryVideo moves a permanently failed video back to the pending state of
// the stage it failed in. The video is picked up again on the next run.
func (p *Pipeline) RetryVideo(ctx context.Context, videoID string) (*store.Video, error) {
	video, err := p.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "retry",
			fmt.Sprintf("video %s not found", videoID), nil)
	}
	if err := video.ResetFailedStage(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "retry", "", err)
	}
	if err := p.store.UpdateVideo(ctx, video); err != nil {
		return nil, err
	}
	p.logger.Info("failed video queued for retry",
		logging.String(logging.FieldVideoID, video.ID),
		logging.String(logging.FieldStatus, string(video.Status)))
	return video, nil
}
