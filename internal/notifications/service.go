package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
)

const userAgent = "signalwatch/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyRunCompleted(ctx context.Context, run *store.Run) error
	NotifyDigestWritten(ctx context.Context, date string, videoCount int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		runs:     cfg.Notifications.Runs,
		digests:  cfg.Notifications.Digests,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	runs     bool
	digests  bool
	errors   bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, run *store.Run) error {
	if !n.runs || run == nil {
		return nil
	}
	succeeded := run.Transcript.Succeeded + run.Summary.Succeeded
	failed := run.Transcript.TransientFailed + run.Transcript.PermanentFailed +
		run.Summary.TransientFailed + run.Summary.PermanentFailed

	title := "Signal Watch - Run Complete"
	if run.Status != store.RunCompleted {
		title = fmt.Sprintf("Signal Watch - Run %s", run.Status)
	}
	message := fmt.Sprintf("%d new videos, %d stage successes, %d stage failures in %s",
		run.Discovered, succeeded, failed, run.Duration().Round(time.Second))
	if run.ChannelsFailed > 0 {
		message += fmt.Sprintf("\n%d channels unreachable", run.ChannelsFailed)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"signalwatch", "run", string(run.Status)},
	}
	if run.Status != store.RunCompleted {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDigestWritten(ctx context.Context, date string, videoCount int) error {
	if !n.digests {
		return nil
	}
	data := payload{
		title:   "Signal Watch - Digest Ready",
		message: fmt.Sprintf("Digest for %s covers %d videos", strings.TrimSpace(date), videoCount),
		tags:    []string{"signalwatch", "digest"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Signal Watch - Error",
		message:  builder.String(),
		tags:     []string{"signalwatch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Signal Watch - Test",
		message:  "Notification system test",
		tags:     []string{"signalwatch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, *store.Run) error        { return nil }
func (noopService) NotifyDigestWritten(context.Context, string, int) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
