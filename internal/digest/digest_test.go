package digest_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/digest"
	"signalwatch/internal/store"
	"signalwatch/internal/testsupport"
)

func enrichVideo(t *testing.T, st *store.Store, id, channelID, title string, enrichedAt time.Time, category string) {
	t.Helper()
	ctx := context.Background()
	video := testsupport.NewVideo(t, st, id, channelID, title)
	video.Status = store.StatusEnriched
	video.EnrichedAt = &enrichedAt
	if err := st.UpdateVideo(ctx, video); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	summary := store.Summary{
		VideoID:   id,
		Summary:   "summary of " + title,
		KeyPoints: []string{"point one", "point two"},
		Category:  category,
		Model:     "llama3.1:8b",
	}
	if err := st.SaveSummary(ctx, summary); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
}

func TestBuildWritesAllArtifacts(t *testing.T) {
	channels := []config.Channel{
		{ID: "UCai00000000000000000001", Name: "AI Channel", Domain: "ai", Priority: 9},
		{ID: "UCdev0000000000000000001", Name: "Dev Channel", Domain: "dev", Priority: 5},
	}
	cfg := testsupport.NewConfig(t, testsupport.WithChannels(channels...))
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedChannels(t, st, cfg)

	now := time.Now().UTC()
	enrichVideo(t, st, "aaaaaaaaaa1", channels[0].ID, "Attention is enough", now.Add(-2*time.Hour), "research")
	enrichVideo(t, st, "bbbbbbbbbb1", channels[1].ID, "Go 1.26 released", now.Add(-1*time.Hour), "news")
	// Outside the window, must be excluded.
	enrichVideo(t, st, "cccccccccc1", channels[0].ID, "Old video", now.Add(-48*time.Hour), "analysis")

	builder := digest.NewBuilder(cfg, st, nil)
	d, err := builder.Build(context.Background(), now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Source != "signal-watch" {
		t.Fatalf("source = %q", d.Source)
	}
	if d.VideoCount != 2 {
		t.Fatalf("video count = %d, want 2", d.VideoCount)
	}
	// Items group by domain, ai before dev.
	if d.Items[0].Domain != "ai" || d.Items[1].Domain != "dev" {
		t.Fatalf("domain order = %s, %s", d.Items[0].Domain, d.Items[1].Domain)
	}
	if d.Items[0].Channel != "AI Channel" {
		t.Fatalf("channel = %q", d.Items[0].Channel)
	}
	if !strings.HasSuffix(d.Items[0].URL, "aaaaaaaaaa1") {
		t.Fatalf("url = %q", d.Items[0].URL)
	}

	date := now.Format("2006-01-02")
	for _, name := range []string{"digest_" + date + ".json", "digest_" + date + ".md", "signal_watch_feed.json"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.DigestDir, name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	feedRaw, err := os.ReadFile(filepath.Join(cfg.Paths.DigestDir, "signal_watch_feed.json"))
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	var feedDigest digest.Digest
	if err := json.Unmarshal(feedRaw, &feedDigest); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feedDigest.Date != date || feedDigest.VideoCount != 2 {
		t.Fatalf("feed digest = %s/%d", feedDigest.Date, feedDigest.VideoCount)
	}

	md, err := os.ReadFile(filepath.Join(cfg.Paths.DigestDir, "digest_"+date+".md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	text := string(md)
	if !strings.Contains(text, "# Signal Watch Digest - "+date) {
		t.Fatalf("markdown missing header:\n%s", text)
	}
	if !strings.Contains(text, "Attention is enough") || !strings.Contains(text, "- point one") {
		t.Fatalf("markdown missing content:\n%s", text)
	}
}

func TestBuildEmptyWindowStillWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedChannels(t, st, cfg)

	builder := digest.NewBuilder(cfg, st, nil)
	now := time.Now().UTC()
	d, err := builder.Build(context.Background(), now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.VideoCount != 0 {
		t.Fatalf("video count = %d, want 0", d.VideoCount)
	}
	md, err := os.ReadFile(filepath.Join(cfg.Paths.DigestDir, "digest_"+now.Format("2006-01-02")+".md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "No videos enriched") {
		t.Fatalf("markdown = %q", string(md))
	}
}

func TestLoadAndLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedChannels(t, st, cfg)
	builder := digest.NewBuilder(cfg, st, nil)

	ctx := context.Background()
	older := time.Now().UTC().Add(-72 * time.Hour)
	if _, err := builder.Build(ctx, older); err != nil {
		t.Fatalf("Build older: %v", err)
	}
	newer := time.Now().UTC()
	if _, err := builder.Build(ctx, newer); err != nil {
		t.Fatalf("Build newer: %v", err)
	}

	loaded, err := builder.Load(older.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Date != older.Format("2006-01-02") {
		t.Fatalf("loaded = %+v", loaded)
	}

	latest, err := builder.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Date != newer.Format("2006-01-02") {
		t.Fatalf("latest = %+v", latest)
	}

	missing, err := builder.Load("1999-01-01")
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}

	if _, err := builder.Load("not-a-date"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
