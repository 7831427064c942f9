package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/feed"
	"signalwatch/internal/pipeline"
	"signalwatch/internal/services"
	"signalwatch/internal/stage"
	"signalwatch/internal/store"
	"signalwatch/internal/testsupport"
)

type fakeSource struct {
	mu      sync.Mutex
	entries map[string][]feed.Entry
	fail    map[string]bool
}

func (f *fakeSource) Fetch(ctx context.Context, channelID string) ([]feed.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[channelID] {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "fetch", channelID, errors.New("connection refused"))
	}
	return f.entries[channelID], nil
}

type stubHandler struct {
	name string
	mu   sync.Mutex
	fn   func(video *store.Video, call int) stage.Outcome
	call map[string]int
}

func newStubHandler(name string, fn func(video *store.Video, call int) stage.Outcome) *stubHandler {
	return &stubHandler{name: name, fn: fn, call: make(map[string]int)}
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Execute(ctx context.Context, video *store.Video) stage.Outcome {
	h.mu.Lock()
	h.call[video.ID]++
	call := h.call[video.ID]
	h.mu.Unlock()
	return h.fn(video, call)
}

func (h *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

func (h *stubHandler) calls(videoID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.call[videoID]
}

func alwaysSucceed(name string) *stubHandler {
	return newStubHandler(name, func(*store.Video, int) stage.Outcome { return stage.Success() })
}

func entriesFor(ids ...string) []feed.Entry {
	entries := make([]feed.Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, feed.Entry{VideoID: id, Title: "video " + id, Published: time.Now().UTC()})
	}
	return entries
}

func newPipeline(t *testing.T, cfg *config.Config, source pipeline.FeedSource, transcriptHandler, summaryHandler stage.Handler) (*pipeline.Pipeline, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	return pipeline.New(cfg, st, source, transcriptHandler, summaryHandler, nil, nil), st
}

func checkRunAccounting(t *testing.T, run *store.Run) {
	t.Helper()
	if run.Fetched != run.Discovered+run.AlreadyKnown {
		t.Errorf("fetched %d != discovered %d + already_known %d", run.Fetched, run.Discovered, run.AlreadyKnown)
	}
	for _, sc := range []struct {
		name     string
		counters store.StageCounters
	}{{"transcript", run.Transcript}, {"summary", run.Summary}} {
		total := sc.counters.Succeeded + sc.counters.TransientFailed + sc.counters.PermanentFailed
		if sc.counters.Attempted != total {
			t.Errorf("%s attempted %d != outcome total %d", sc.name, sc.counters.Attempted, total)
		}
	}
}

func TestRunEnrichesDiscoveredVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{
		channelID: entriesFor("aaaaaaaaaa1", "bbbbbbbbbb1", "cccccccccc1"),
	}}
	p, st := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	run, err := p.Run(context.Background(), store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != store.RunCompleted {
		t.Fatalf("status = %s, want completed", run.Status)
	}
	if run.Discovered != 3 || run.AlreadyKnown != 0 {
		t.Fatalf("discovered=%d already_known=%d", run.Discovered, run.AlreadyKnown)
	}
	if run.Transcript.Succeeded != 3 || run.Summary.Succeeded != 3 {
		t.Fatalf("stage successes = %d/%d, want 3/3", run.Transcript.Succeeded, run.Summary.Succeeded)
	}
	checkRunAccounting(t, run)

	for _, id := range []string{"aaaaaaaaaa1", "bbbbbbbbbb1", "cccccccccc1"} {
		video, err := st.GetVideo(context.Background(), id)
		if err != nil || video == nil {
			t.Fatalf("GetVideo(%s): %v %v", id, video, err)
		}
		if video.Status != store.StatusEnriched {
			t.Fatalf("video %s status = %s, want enriched", id, video.Status)
		}
		if video.EnrichedAt == nil {
			t.Fatalf("video %s missing enriched timestamp", id)
		}
	}
}

func TestSecondRunRediscoversNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{
		channelID: entriesFor("aaaaaaaaaa1", "bbbbbbbbbb1"),
	}}
	p, _ := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	if _, err := p.Run(ctx, store.TriggerManual); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run(ctx, store.TriggerScheduled)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Discovered != 0 {
		t.Fatalf("second run discovered = %d, want 0", second.Discovered)
	}
	if second.AlreadyKnown != 2 {
		t.Fatalf("second run already_known = %d, want 2", second.AlreadyKnown)
	}
	if second.Transcript.Attempted != 0 {
		t.Fatalf("enriched videos must not be reprocessed, attempted = %d", second.Transcript.Attempted)
	}
	checkRunAccounting(t, second)
}

func TestFailedChannelDoesNotStopOthers(t *testing.T) {
	channels := []config.Channel{
		{ID: "UCokay000000000000000001", Name: "Okay", Domain: "ai", Priority: 5},
		{ID: "UCbroken0000000000000001", Name: "Broken", Domain: "ai", Priority: 9},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithChannels(channels...))
	source := &fakeSource{
		entries: map[string][]feed.Entry{"UCokay000000000000000001": entriesFor("aaaaaaaaaa1")},
		fail:    map[string]bool{"UCbroken0000000000000001": true},
	}
	p, st := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	run, err := p.Run(context.Background(), store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.ChannelsFailed != 1 {
		t.Fatalf("channels_failed = %d, want 1", run.ChannelsFailed)
	}
	if run.Discovered != 1 {
		t.Fatalf("discovered = %d, want 1 from the healthy channel", run.Discovered)
	}
	video, err := st.GetVideo(context.Background(), "aaaaaaaaaa1")
	if err != nil || video == nil {
		t.Fatalf("GetVideo: %v %v", video, err)
	}
	if video.Status != store.StatusEnriched {
		t.Fatalf("healthy channel video status = %s, want enriched", video.Status)
	}
}

func TestTransientFailureLeavesVideoResumable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageAttempts = 1
	cfg.Workflow.RetryBackoffMillis = 1
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}

	transcriptHandler := newStubHandler(store.StageTranscript, func(v *store.Video, call int) stage.Outcome {
		if call == 1 {
			return stage.Transient("transcript service busy", nil)
		}
		return stage.Success()
	})
	p, st := newPipeline(t, cfg, source, transcriptHandler, alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	first, err := p.Run(ctx, store.TriggerManual)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Transcript.TransientFailed != 1 {
		t.Fatalf("transient_failed = %d, want 1", first.Transcript.TransientFailed)
	}
	checkRunAccounting(t, first)

	video, _ := st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusTranscriptPending {
		t.Fatalf("status = %s, want transcript_pending after transient failure", video.Status)
	}
	if video.TranscriptRetries != 1 {
		t.Fatalf("transcript retries = %d, want 1", video.TranscriptRetries)
	}

	second, err := p.Run(ctx, store.TriggerScheduled)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Transcript.Succeeded != 1 || second.Summary.Succeeded != 1 {
		t.Fatalf("second run successes = %d/%d, want 1/1", second.Transcript.Succeeded, second.Summary.Succeeded)
	}
	video, _ = st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusEnriched {
		t.Fatalf("status = %s, want enriched after resume", video.Status)
	}
}

func TestInRunRetryRecoversWithinAttemptBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageAttempts = 2
	cfg.Workflow.RetryBackoffMillis = 1
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}

	transcriptHandler := newStubHandler(store.StageTranscript, func(v *store.Video, call int) stage.Outcome {
		if call == 1 {
			return stage.Transient("flaky upstream", nil)
		}
		return stage.Success()
	})
	p, st := newPipeline(t, cfg, source, transcriptHandler, alwaysSucceed(store.StageSummary))

	run, err := p.Run(context.Background(), store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transcriptHandler.calls("aaaaaaaaaa1") != 2 {
		t.Fatalf("handler calls = %d, want 2 (one retry)", transcriptHandler.calls("aaaaaaaaaa1"))
	}
	// The retry happened inside one stage execution, so it counts once.
	if run.Transcript.Attempted != 1 || run.Transcript.Succeeded != 1 {
		t.Fatalf("transcript counters = %+v", run.Transcript)
	}
	video, _ := st.GetVideo(context.Background(), "aaaaaaaaaa1")
	if video.Status != store.StatusEnriched {
		t.Fatalf("status = %s, want enriched", video.Status)
	}
}

func TestPermanentFailureAndManualRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}

	var allow bool
	var mu sync.Mutex
	transcriptHandler := newStubHandler(store.StageTranscript, func(v *store.Video, call int) stage.Outcome {
		mu.Lock()
		defer mu.Unlock()
		if !allow {
			return stage.Permanent("captions disabled by uploader", nil)
		}
		return stage.Success()
	})
	p, st := newPipeline(t, cfg, source, transcriptHandler, alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	run, err := p.Run(ctx, store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Transcript.PermanentFailed != 1 {
		t.Fatalf("permanent_failed = %d, want 1", run.Transcript.PermanentFailed)
	}

	video, _ := st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusFailed || video.FailedStage != store.StageTranscript {
		t.Fatalf("video = %s/%s, want failed/transcript", video.Status, video.FailedStage)
	}
	if video.LastError == "" {
		t.Fatal("failed video must record a reason")
	}

	// Later runs skip failed videos entirely.
	if _, err := p.Run(ctx, store.TriggerScheduled); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := transcriptHandler.calls("aaaaaaaaaa1"); got != 1 {
		t.Fatalf("handler calls after failure = %d, want 1", got)
	}

	reset, err := p.RetryVideo(ctx, "aaaaaaaaaa1")
	if err != nil {
		t.Fatalf("RetryVideo: %v", err)
	}
	if reset.Status != store.StatusTranscriptPending {
		t.Fatalf("reset status = %s, want transcript_pending", reset.Status)
	}

	mu.Lock()
	allow = true
	mu.Unlock()
	if _, err := p.Run(ctx, store.TriggerManual); err != nil {
		t.Fatalf("third Run: %v", err)
	}
	video, _ = st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusEnriched {
		t.Fatalf("status = %s, want enriched after manual retry", video.Status)
	}
}

func TestRetryVideoRejectsNonFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}
	p, _ := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	if _, err := p.Run(ctx, store.TriggerManual); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := p.RetryVideo(ctx, "aaaaaaaaaa1"); err == nil {
		t.Fatal("expected error retrying an enriched video")
	}
	if _, err := p.RetryVideo(ctx, "nosuchvid01"); err == nil {
		t.Fatal("expected error retrying an unknown video")
	}
}

func TestMaxVideosPerPollCapsDiscovery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.MaxVideosPerPoll = 2
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{
		channelID: entriesFor("aaaaaaaaaa1", "bbbbbbbbbb1", "cccccccccc1", "dddddddddd1"),
	}}
	p, _ := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	run, err := p.Run(context.Background(), store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Discovered != 2 {
		t.Fatalf("discovered = %d, want 2 (poll cap)", run.Discovered)
	}
}

func TestConcurrentWorkersAccountForEveryVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(3))
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{
		channelID: entriesFor("aaaaaaaaaa1", "bbbbbbbbbb1", "cccccccccc1", "dddddddddd1", "eeeeeeeeee1", "ffffffffff1"),
	}}
	p, st := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	run, err := p.Run(context.Background(), store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Discovered != 6 {
		t.Fatalf("discovered = %d, want 6", run.Discovered)
	}
	if run.Transcript.Attempted != 6 || run.Transcript.Succeeded != 6 {
		t.Fatalf("transcript counters = %+v, want 6 attempted/succeeded", run.Transcript)
	}
	if run.Summary.Attempted != 6 || run.Summary.Succeeded != 6 {
		t.Fatalf("summary counters = %+v, want 6 attempted/succeeded", run.Summary)
	}
	checkRunAccounting(t, run)

	enriched, err := st.VideosByStatus(context.Background(), store.StatusEnriched)
	if err != nil {
		t.Fatalf("VideosByStatus: %v", err)
	}
	if len(enriched) != 6 {
		t.Fatalf("enriched videos = %d, want 6", len(enriched))
	}
}

func TestMixedTranscriptOutcomesInOneBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{
		channelID: entriesFor("aaaaaaaaaa1", "bbbbbbbbbb1", "cccccccccc1"),
	}}

	transcriptHandler := newStubHandler(store.StageTranscript, func(v *store.Video, call int) stage.Outcome {
		if v.ID == "cccccccccc1" {
			return stage.Permanent("no transcript available", nil)
		}
		return stage.Success()
	})
	p, st := newPipeline(t, cfg, source, transcriptHandler, alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	run, err := p.Run(ctx, store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Discovered != 3 {
		t.Fatalf("discovered = %d, want 3", run.Discovered)
	}
	if run.Transcript.Succeeded != 2 || run.Transcript.PermanentFailed != 1 {
		t.Fatalf("transcript counters = %+v, want 2 succeeded / 1 permanent", run.Transcript)
	}
	checkRunAccounting(t, run)

	for _, id := range []string{"aaaaaaaaaa1", "bbbbbbbbbb1"} {
		video, _ := st.GetVideo(ctx, id)
		if video.Status != store.StatusEnriched {
			t.Fatalf("video %s status = %s, want enriched", id, video.Status)
		}
	}
	failed, _ := st.GetVideo(ctx, "cccccccccc1")
	if failed.Status != store.StatusFailed || failed.FailedStage != store.StageTranscript {
		t.Fatalf("failed video = %s/%s, want failed/transcript", failed.Status, failed.FailedStage)
	}
	if failed.LastError != "no transcript available" {
		t.Fatalf("last error = %q", failed.LastError)
	}
}

func TestMalformedSummaryThenRecovery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageAttempts = 1
	cfg.Workflow.RetryBackoffMillis = 1
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}

	summaryHandler := newStubHandler(store.StageSummary, func(v *store.Video, call int) stage.Outcome {
		if call == 1 {
			return stage.Transient("model returned malformed output", nil)
		}
		return stage.Success()
	})
	p, st := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), summaryHandler)

	ctx := context.Background()
	first, err := p.Run(ctx, store.TriggerManual)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Summary.TransientFailed != 1 {
		t.Fatalf("summary transient_failed = %d, want 1", first.Summary.TransientFailed)
	}
	video, _ := st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusSummaryPending {
		t.Fatalf("status = %s, want summary_pending after malformed output", video.Status)
	}
	if video.SummaryRetries != 1 {
		t.Fatalf("summary retries = %d, want 1", video.SummaryRetries)
	}

	second, err := p.Run(ctx, store.TriggerScheduled)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Summary.Succeeded != 1 {
		t.Fatalf("second run summary succeeded = %d, want 1", second.Summary.Succeeded)
	}
	video, _ = st.GetVideo(ctx, "aaaaaaaaaa1")
	if video.Status != store.StatusEnriched {
		t.Fatalf("status = %s, want enriched", video.Status)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	channelID := cfg.Channels[0].ID
	source := &fakeSource{entries: map[string][]feed.Entry{channelID: entriesFor("aaaaaaaaaa1")}}
	p, st := newPipeline(t, cfg, source, alwaysSucceed(store.StageTranscript), alwaysSucceed(store.StageSummary))

	ctx := context.Background()
	run, err := p.Run(ctx, store.TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stored, err := st.GetRun(ctx, run.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetRun: %v %v", stored, err)
	}
	if stored.Status != store.RunCompleted || stored.FinishedAt == nil {
		t.Fatalf("stored run = %+v, want finalized", stored)
	}
	if stored.Trigger != store.TriggerManual {
		t.Fatalf("trigger = %s, want manual", stored.Trigger)
	}
}
