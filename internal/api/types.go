package api

import (
	"time"

	"signalwatch/internal/store"
)

// ChannelView is the wire shape of a watched channel.
type ChannelView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	Priority int    `json:"priority"`
}

// VideoView is the wire shape of a tracked video.
type VideoView struct {
	ID                string     `json:"id"`
	ChannelID         string     `json:"channel_id"`
	Title             string     `json:"title"`
	PublishedAt       time.Time  `json:"published_at"`
	Status            string     `json:"status"`
	FailedStage       string     `json:"failed_stage,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	TranscriptRetries int        `json:"transcript_retries"`
	SummaryRetries    int        `json:"summary_retries"`
	DiscoveredAt      time.Time  `json:"discovered_at"`
	EnrichedAt        *time.Time `json:"enriched_at,omitempty"`
}

// VideoDetail extends VideoView with the summary artifact when present.
type VideoDetail struct {
	VideoView
	Summary *SummaryView `json:"summary,omitempty"`
}

// SummaryView is the wire shape of a summary artifact.
type SummaryView struct {
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"key_points"`
	Category    string    `json:"category"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TranscriptView is the wire shape of a transcript artifact.
type TranscriptView struct {
	VideoID   string    `json:"video_id"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// StageCounterView mirrors one stage's run counters.
type StageCounterView struct {
	Attempted       int `json:"attempted"`
	Succeeded       int `json:"succeeded"`
	TransientFailed int `json:"transient_failed"`
	PermanentFailed int `json:"permanent_failed"`
}

// RunView is the wire shape of a run record.
type RunView struct {
	ID             string           `json:"id"`
	Trigger        string           `json:"trigger"`
	Status         string           `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
	Fetched        int              `json:"fetched"`
	Discovered     int              `json:"discovered"`
	AlreadyKnown   int              `json:"already_known"`
	ChannelsFailed int              `json:"channels_failed"`
	Transcript     StageCounterView `json:"transcript"`
	Summary        StageCounterView `json:"summary"`
	ErrorMessage   string           `json:"error,omitempty"`
}

// StageHealthView reports one stage's readiness.
type StageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Healthy bool              `json:"healthy"`
	Store   bool              `json:"store"`
	Stages  []StageHealthView `json:"stages"`
}

func videoView(v *store.Video) VideoView {
	return VideoView{
		ID:                v.ID,
		ChannelID:         v.ChannelID,
		Title:             v.Title,
		PublishedAt:       v.PublishedAt,
		Status:            string(v.Status),
		FailedStage:       v.FailedStage,
		LastError:         v.LastError,
		TranscriptRetries: v.TranscriptRetries,
		SummaryRetries:    v.SummaryRetries,
		DiscoveredAt:      v.DiscoveredAt,
		EnrichedAt:        v.EnrichedAt,
	}
}

func counterView(c store.StageCounters) StageCounterView {
	return StageCounterView{
		Attempted:       c.Attempted,
		Succeeded:       c.Succeeded,
		TransientFailed: c.TransientFailed,
		PermanentFailed: c.PermanentFailed,
	}
}

func runView(r *store.Run) RunView {
	return RunView{
		ID:             r.ID,
		Trigger:        string(r.Trigger),
		Status:         string(r.Status),
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Fetched:        r.Fetched,
		Discovered:     r.Discovered,
		AlreadyKnown:   r.AlreadyKnown,
		ChannelsFailed: r.ChannelsFailed,
		Transcript:     counterView(r.Transcript),
		Summary:        counterView(r.Summary),
		ErrorMessage:   r.ErrorMessage,
	}
}
