package pipeline

import (
	"context"

	"signalwatch/internal/services/summarizer"
	"signalwatch/internal/services/transcript"
	"signalwatch/internal/stage"
	"signalwatch/internal/store"
)

// transcriptStage fetches and persists the transcript for a video.
type transcriptStage struct {
	client *transcript.Client
	store  *store.Store
}

// NewTranscriptStage builds the transcript stage handler.
func NewTranscriptStage(client *transcript.Client, st *store.Store) stage.Handler {
	return &transcriptStage{client: client, store: st}
}

func (s *transcriptStage) Name() string { return store.StageTranscript }

func (s *transcriptStage) Execute(ctx context.Context, video *store.Video) stage.Outcome {
	result, err := s.client.Fetch(ctx, video.ID)
	if err != nil {
		return stage.FromError(err)
	}
	if err := s.store.SaveTranscript(ctx, video.ID, result.Language, result.Text); err != nil {
		return stage.Transient("persist transcript", err)
	}
	return stage.Success()
}

func (s *transcriptStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}

// summaryStage summarizes a stored transcript and persists the result.
type summaryStage struct {
	client  *summarizer.Client
	store   *store.Store
	channel func(ctx context.Context, id string) string
}

// NewSummaryStage builds the summary stage handler.
func NewSummaryStage(client *summarizer.Client, st *store.Store) stage.Handler {
	return &summaryStage{
		client: client,
		store:  st,
		channel: func(ctx context.Context, id string) string {
			channel, err := st.GetChannel(ctx, id)
			if err != nil || channel == nil {
				return ""
			}
			return channel.Name
		},
	}
}

func (s *summaryStage) Name() string { return store.StageSummary }

func (s *summaryStage) Execute(ctx context.Context, video *store.Video) stage.Outcome {
	stored, err := s.store.GetTranscript(ctx, video.ID)
	if err != nil {
		return stage.Transient("load transcript", err)
	}
	if stored == nil {
		// A summary-pending video without a transcript means the artifact
		// was lost; send it back through the transcript stage by hand.
		return stage.Permanent("transcript artifact missing", nil)
	}

	summary, err := s.client.Summarize(ctx, summarizer.Input{
		Title:      video.Title,
		Channel:    s.channel(ctx, video.ChannelID),
		Transcript: stored.Content,
	})
	if err != nil {
		return stage.FromError(err)
	}

	record := store.Summary{
		VideoID:   video.ID,
		Summary:   summary.Summary,
		KeyPoints: summary.KeyPoints,
		Category:  summary.Category,
		Model:     s.client.Model(),
	}
	if err := s.store.SaveSummary(ctx, record); err != nil {
		return stage.Transient("persist summary", err)
	}
	return stage.Success()
}

func (s *summaryStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}
