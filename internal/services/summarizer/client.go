package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signalwatch/internal/services"
)

const (
	defaultHTTPTimeout    = 90 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the runtime settings required to talk to the model server.
type Config struct {
	BaseURL            string
	Model              string
	Temperature        float64
	MaxTranscriptChars int
	TimeoutSeconds     int
}

// Client wraps the Ollama generate API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
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

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a summarizer client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:            strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:              strings.TrimSpace(cfg.Model),
			Temperature:        cfg.Temperature,
			MaxTranscriptChars: cfg.MaxTranscriptChars,
			TimeoutSeconds:     cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://localhost:11434"
	}
	if client.cfg.MaxTranscriptChars <= 0 {
		client.cfg.MaxTranscriptChars = defaultMaxTranscriptChars
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Input is the material handed to the model for one video.
type Input struct {
	Title      string
	Channel    string
	Transcript string
}

// Summary is the structured payload the model must produce.
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Category  string   `json:"category"`
}

// validCategories is the closed category set; anything else maps to "news".
var validCategories = map[string]struct{}{
	"research":     {},
	"announcement": {},
	"tutorial":     {},
	"news":         {},
	"analysis":     {},
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("summarizer request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: model returned empty response", e.Op)
}

// Summarize produces a structured summary for one transcript. Failures are
// classified with the services markers: unreachable or overloaded model
// servers and malformed payloads are transient, missing configuration is
// permanent.
func (c *Client) Summarize(ctx context.Context, input Input) (Summary, error) {
	var empty Summary
	if strings.TrimSpace(c.cfg.Model) == "" {
		return empty, services.Wrap(services.ErrConfiguration, "summarizer", "summarize", "model required", nil)
	}
	if strings.TrimSpace(input.Transcript) == "" {
		return empty, services.Wrap(services.ErrValidation, "summarizer", "summarize", "transcript required", nil)
	}

	prompt := buildPrompt(input, c.cfg.MaxTranscriptChars)
	content, err := c.generateWithRetry(ctx, prompt, "summarize")
	if err != nil {
		return empty, c.classify("summarize", err)
	}

	var parsed Summary
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return empty, services.Wrap(services.ErrTransient, "summarizer", "summarize", "parse payload", err)
	}
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	if parsed.Summary == "" {
		return empty, services.Wrap(services.ErrTransient, "summarizer", "summarize", "payload missing summary", nil)
	}
	points := make([]string, 0, len(parsed.KeyPoints))
	for _, point := range parsed.KeyPoints {
		if trimmed := strings.TrimSpace(point); trimmed != "" {
			points = append(points, trimmed)
		}
	}
	parsed.KeyPoints = points
	parsed.Category = strings.ToLower(strings.TrimSpace(parsed.Category))
	if _, ok := validCategories[parsed.Category]; !ok {
		parsed.Category = "news"
	}
	return parsed, nil
}

// HealthCheck verifies the model server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "summarizer", "health", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "summarizer", "health", "model server unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "summarizer", "health",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

func (c *Client) classify(op string, err error) error {
	if services.IsTransient(err) || services.IsPermanent(err) {
		return err
	}
	return services.Wrap(services.ErrTransient, "summarizer", op, "model request failed", err)
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (c *Client) generateWithRetry(ctx context.Context, prompt, op string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendGenerateOnce(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(content) == "" {
				err = &emptyContentError{Op: op}
			} else {
				return content, nil
			}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendGenerateOnce(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: generateOptions{Temperature: c.cfg.Temperature},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("summarizer request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("summarizer request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("summarizer request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	var generated generateResponse
	if err := json.Unmarshal(body, &generated); err != nil {
		return "", fmt.Errorf("summarizer request: decode response: %w", err)
	}
	if generated.Error != "" {
		return "", fmt.Errorf("summarizer request: api error: %s", strings.TrimSpace(generated.Error))
	}
	return generated.Response, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	if _, ok := err.(*emptyContentError); ok {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("summarizer retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
