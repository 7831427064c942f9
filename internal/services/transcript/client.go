package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"signalwatch/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Track describes one transcript variant a video offers.
type Track struct {
	Language  string `json:"language"`
	Generated bool   `json:"generated"`
}

// Result is a fetched transcript with the language that was selected.
type Result struct {
	Language  string
	Generated bool
	Text      string
}

// Client talks to the transcript service.
type Client struct {
	baseURL    string
	preferred  []language.Tag
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

// NewClient constructs a transcript client. Languages are preference-ordered
// BCP 47 tags; unparseable entries are dropped and an empty list falls back
// to English.
func NewClient(baseURL string, languages []string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		preferred:  parseTags(languages),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func parseTags(languages []string) []language.Tag {
	tags := make([]language.Tag, 0, len(languages))
	for _, raw := range languages {
		tag, err := language.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = append(tags, language.English)
	}
	return tags
}

// serviceError is the error envelope the transcript service returns on 4xx.
type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// permanentCodes are failure codes that no amount of retrying can fix.
var permanentCodes = map[string]string{
	"no_transcript":     "video has no transcript",
	"captions_disabled": "captions disabled by uploader",
	"video_unavailable": "video removed or private",
}

// Fetch returns the transcript for videoID in the best available language.
// It lists the available tracks, picks the closest match to the configured
// preference order, and downloads that track. Missing or disabled
// transcripts are permanent failures; everything else is transient.
func (c *Client) Fetch(ctx context.Context, videoID string) (Result, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcript", "fetch", "video id required", nil)
	}

	tracks, err := c.listTracks(ctx, videoID)
	if err != nil {
		return Result{}, err
	}
	if len(tracks) == 0 {
		return Result{}, services.Wrap(services.ErrPermanent, "transcript", "fetch",
			fmt.Sprintf("%s: video has no transcript", videoID), nil)
	}

	track := c.pickTrack(tracks)
	text, err := c.download(ctx, videoID, track.Language)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Language:  track.Language,
		Generated: track.Generated,
		Text:      Normalize(text),
	}, nil
}

// HealthCheck verifies the transcript service answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcript", "health", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcript", "health", "service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "transcript", "health",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) listTracks(ctx context.Context, videoID string) ([]Track, error) {
	body, err := c.get(ctx, videoID, c.baseURL+"/transcripts/"+url.PathEscape(videoID))
	if err != nil {
		return nil, err
	}
	var listing struct {
		Tracks []Track `json:"tracks"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "list",
			fmt.Sprintf("%s: decode track listing", videoID), err)
	}
	return listing.Tracks, nil
}

func (c *Client) download(ctx context.Context, videoID, lang string) (string, error) {
	endpoint := c.baseURL + "/transcripts/" + url.PathEscape(videoID) + "/" + url.PathEscape(lang)
	body, err := c.get(ctx, videoID, endpoint)
	if err != nil {
		return "", err
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcript", "download",
			fmt.Sprintf("%s: decode transcript", videoID), err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return "", services.Wrap(services.ErrTransient, "transcript", "download",
			fmt.Sprintf("%s: empty transcript body", videoID), nil)
	}
	return payload.Text, nil
}

// pickTrack matches the available track languages against the preference
// order. When nothing matches it prefers a non-generated track, then the
// first track listed.
func (c *Client) pickTrack(tracks []Track) Track {
	available := make([]language.Tag, 0, len(tracks))
	indexes := make([]int, 0, len(tracks))
	for i, track := range tracks {
		tag, err := language.Parse(track.Language)
		if err != nil {
			continue
		}
		available = append(available, tag)
		indexes = append(indexes, i)
	}
	if len(available) > 0 {
		matcher := language.NewMatcher(available)
		if _, idx, conf := matcher.Match(c.preferred...); conf > language.No {
			return tracks[indexes[idx]]
		}
	}
	for _, track := range tracks {
		if !track.Generated {
			return track
		}
	}
	return tracks[0]
}

func (c *Client) get(ctx context.Context, videoID, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		marker := services.ErrTransient
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "transcript", "fetch", videoID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "read", videoID, err)
	}
	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	return nil, c.classifyStatus(videoID, resp.StatusCode, body)
}

func (c *Client) classifyStatus(videoID string, status int, body []byte) error {
	if status == http.StatusNotFound || status == http.StatusGone {
		var svcErr serviceError
		if err := json.Unmarshal(body, &svcErr); err == nil {
			if detail, ok := permanentCodes[svcErr.Code]; ok {
				return services.Wrap(services.ErrPermanent, "transcript", "fetch",
					fmt.Sprintf("%s: %s", videoID, detail), nil)
			}
		}
		return services.Wrap(services.ErrPermanent, "transcript", "fetch",
			fmt.Sprintf("%s: http %d", videoID, status), nil)
	}
	return services.Wrap(services.ErrTransient, "transcript", "fetch",
		fmt.Sprintf("%s: http %d", videoID, status), nil)
}
