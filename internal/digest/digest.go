package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/logging"
	"signalwatch/internal/store"
)

const (
	// Source identifies this producer in the aggregator feed file.
	Source = "signal-watch"

	feedFileName = "signal_watch_feed.json"
	dateLayout   = "2006-01-02"
)

// Item is one enriched video in a digest.
type Item struct {
	VideoID     string    `json:"video_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	Domain      string    `json:"domain"`
	Category    string    `json:"category"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"key_points"`
	PublishedAt time.Time `json:"published_at"`
	EnrichedAt  time.Time `json:"enriched_at"`
}

// Digest is the full daily artifact.
type Digest struct {
	Source      string    `json:"source"`
	Date        string    `json:"date"`
	GeneratedAt time.Time `json:"generated_at"`
	WindowHours int       `json:"window_hours"`
	VideoCount  int       `json:"video_count"`
	Items       []Item    `json:"items"`
}

// Builder assembles and writes digests.
type Builder struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewBuilder constructs a digest builder.
func NewBuilder(cfg *config.Config, st *store.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		cfg:    cfg,
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "digest")),
	}
}

// Build assembles the digest for the window ending at date and writes the
// JSON, Markdown, and feed artifacts. An empty window still produces files
// so consumers can tell "no content" from "never ran".
func (b *Builder) Build(ctx context.Context, date time.Time) (*Digest, error) {
	window := time.Duration(b.cfg.Workflow.DigestWindowHours) * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}
	cutoff := date.Add(-window)

	enriched, err := b.store.EnrichedSince(ctx, cutoff, "")
	if err != nil {
		return nil, fmt.Errorf("collect enriched videos: %w", err)
	}

	channels := make(map[string]*store.Channel)
	items := make([]Item, 0, len(enriched))
	for _, ev := range enriched {
		channel, ok := channels[ev.Video.ChannelID]
		if !ok {
			channel, err = b.store.GetChannel(ctx, ev.Video.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("resolve channel %s: %w", ev.Video.ChannelID, err)
			}
			channels[ev.Video.ChannelID] = channel
		}
		item := Item{
			VideoID:     ev.Video.ID,
			URL:         "https://www.youtube.com/watch?v=" + ev.Video.ID,
			Title:       ev.Video.Title,
			Category:    ev.Summary.Category,
			Summary:     ev.Summary.Summary,
			KeyPoints:   ev.Summary.KeyPoints,
			PublishedAt: ev.Video.PublishedAt,
		}
		if ev.Video.EnrichedAt != nil {
			item.EnrichedAt = *ev.Video.EnrichedAt
		}
		if channel != nil {
			item.Channel = channel.Name
			item.Domain = channel.Domain
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Domain != items[j].Domain {
			return items[i].Domain < items[j].Domain
		}
		return items[i].EnrichedAt.Before(items[j].EnrichedAt)
	})

	d := &Digest{
		Source:      Source,
		Date:        date.UTC().Format(dateLayout),
		GeneratedAt: time.Now().UTC(),
		WindowHours: int(window / time.Hour),
		VideoCount:  len(items),
		Items:       items,
	}
	if err := b.write(d); err != nil {
		return nil, err
	}
	b.logger.Info("digest written",
		logging.String("date", d.Date),
		logging.Int("videos", d.VideoCount))
	return d, nil
}

func (b *Builder) write(d *Digest) error {
	dir := b.cfg.Paths.DigestDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create digest dir: %w", err)
	}

	encoded, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}
	jsonPath := filepath.Join(dir, fmt.Sprintf("digest_%s.json", d.Date))
	if err := os.WriteFile(jsonPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write digest json: %w", err)
	}
	mdPath := filepath.Join(dir, fmt.Sprintf("digest_%s.md", d.Date))
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(d)), 0o644); err != nil {
		return fmt.Errorf("write digest markdown: %w", err)
	}
	// The feed file always mirrors the most recent digest.
	feedPath := filepath.Join(dir, feedFileName)
	if err := os.WriteFile(feedPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write digest feed: %w", err)
	}
	return nil
}

// Load reads a previously written digest by date (YYYY-MM-DD). Returns nil
// when no digest exists for that date.
func (b *Builder) Load(date string) (*Digest, error) {
	date = strings.TrimSpace(date)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid digest date %q", date)
	}
	path := filepath.Join(b.cfg.Paths.DigestDir, fmt.Sprintf("digest_%s.json", date))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read digest: %w", err)
	}
	var d Digest
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode digest %s: %w", date, err)
	}
	return &d, nil
}

// Latest returns the most recent digest on disk, or nil when none exist.
func (b *Builder) Latest() (*Digest, error) {
	matches, err := filepath.Glob(filepath.Join(b.cfg.Paths.DigestDir, "digest_*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan digest dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	// Dates sort lexically, so the last match is the newest.
	sort.Strings(matches)
	name := filepath.Base(matches[len(matches)-1])
	date := strings.TrimSuffix(strings.TrimPrefix(name, "digest_"), ".json")
	return b.Load(date)
}
