package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podforge/internal/config"
	"podforge/internal/textutil"
)

const userAgent = "Podforge-Go/0.1.0"

// Service defines the notification surface exposed to the generation worker.
type Service interface {
	NotifyGenerationCompleted(ctx context.Context, episodeName string, elapsed time.Duration) error
	NotifyGenerationFailed(ctx context.Context, episodeName, errorSummary string) error
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
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sendCompleted: cfg.Notifications.Completed,
		sendFailed:    cfg.Notifications.Failed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendCompleted bool
	sendFailed    bool
}

func (n *ntfyService) NotifyGenerationCompleted(ctx context.Context, episodeName string, elapsed time.Duration) error {
	if !n.sendCompleted {
		return nil
	}
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	data := payload{
		title:    "Podforge - Episode Ready",
		message:  fmt.Sprintf("✅ Ready to listen: %s (generated in %s)", textutil.DisplayTitle(episodeName), elapsed),
		tags:     []string{"podforge", "generation", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyGenerationFailed(ctx context.Context, episodeName, errorSummary string) error {
	if !n.sendFailed {
		return nil
	}
	errorSummary = strings.TrimSpace(errorSummary)
	if errorSummary == "" {
		errorSummary = "unknown error"
	}
	data := payload{
		title:    "Podforge - Generation Failed",
		message:  fmt.Sprintf("❌ Generation failed: %s\n%s", textutil.DisplayTitle(episodeName), errorSummary),
		tags:     []string{"podforge", "generation", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Podforge - Test",
		message:  "Notification system test",
		tags:     []string{"podforge", "test"},
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

func (noopService) NotifyGenerationCompleted(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifyGenerationFailed(context.Context, string, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
