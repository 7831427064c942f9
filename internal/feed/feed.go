package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"signalwatch/internal/services"
)

const defaultBaseURL = "https://www.youtube.com/feeds/videos.xml"

// videoIDPattern matches the native 11-character video identifier.
var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Entry is one published item descriptor from a channel feed.
type Entry struct {
	VideoID   string
	Title     string
	Published time.Time
}

// Client fetches channel feeds. It is a pure adapter: one channel identifier
// in, an ordered slice of descriptors out.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a feed client. An empty baseURL selects the public
// YouTube feed endpoint.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string `xml:"videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
}

// Fetch returns the current published entries for one channel. An empty feed
// yields an empty slice. Network, HTTP, and parse failures are all wrapped
// with the source-unavailable marker so the orchestrator isolates the channel
// and retries on a later run.
func (c *Client) Fetch(ctx context.Context, channelID string) ([]Entry, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, services.Wrap(services.ErrValidation, "feed", "fetch", "channel id required", nil)
	}

	endpoint := c.baseURL + "?channel_id=" + url.QueryEscape(channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "fetch", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "fetch", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "fetch",
			fmt.Sprintf("%s: http %d", channelID, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "read", channelID, err)
	}

	var parsed atomFeed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "feed", "parse", channelID, err)
	}

	entries := make([]Entry, 0, len(parsed.Entries))
	for _, raw := range parsed.Entries {
		id := strings.TrimSpace(raw.VideoID)
		if !videoIDPattern.MatchString(id) {
			continue
		}
		entry := Entry{
			VideoID: id,
			Title:   strings.TrimSpace(raw.Title),
		}
		if published, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.Published)); err == nil {
			entry.Published = published.UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
