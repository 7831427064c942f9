package testsupport

import (
	"context"
	"testing"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedChannels syncs the config's channel list into the store.
func SeedChannels(t testing.TB, st *store.Store, cfg *config.Config) {
	t.Helper()

	if err := st.SyncChannels(context.Background(), cfg.Channels); err != nil {
		t.Fatalf("store.SyncChannels: %v", err)
	}
}

// NewVideo inserts a discovered video for tests using the provided store.
func NewVideo(t testing.TB, st *store.Store, id, channelID, title string) *store.Video {
	t.Helper()

	video := &store.Video{
		ID:          id,
		ChannelID:   channelID,
		Title:       title,
		PublishedAt: time.Now().UTC().Add(-time.Hour),
	}
	if err := st.InsertVideo(context.Background(), video); err != nil {
		t.Fatalf("store.InsertVideo: %v", err)
	}
	return video
}
