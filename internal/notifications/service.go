package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"readrepeat/internal/config"
)

const userAgent = "readrepeat/0.1"

// Event names a notification type.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventJobReview    Event = "job_review"
	EventTest         Event = "test"
)

// Payload carries event fields such as jobId, kind, lessonId, sentences and
// error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted: cfg.Notifications.JobCompleted,
			EventJobFailed:    cfg.Notifications.JobFailed,
			EventJobReview:    cfg.Notifications.JobFailed,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	label := jobLabel(payload)
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("Finished %s", label)
		if n := payload.count("sentences"); n > 0 {
			body = fmt.Sprintf("%s (%d sentences)", body, n)
		}
		return message{
			title: "readrepeat - Job Complete",
			body:  body,
			tags:  []string{"readrepeat", "job", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "readrepeat - Job Failed",
			body:     fmt.Sprintf("Failed %s: %s", label, payload.text("error", "unknown error")),
			tags:     []string{"readrepeat", "job", "error"},
			priority: "high",
		}, true
	case EventJobReview:
		return message{
			title: "readrepeat - Needs Review",
			body:  fmt.Sprintf("Rejected %s: %s", label, payload.text("error", "invalid input")),
			tags:  []string{"readrepeat", "job", "review"},
		}, true
	case EventTest:
		return message{
			title:    "readrepeat - Test",
			body:     "Notification system test",
			tags:     []string{"readrepeat", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func jobLabel(payload Payload) string {
	label := payload.text("kind", "job")
	if id := payload.text("jobId", ""); id != "" {
		label = fmt.Sprintf("%s %s", label, id)
	}
	if lesson := payload.text("lessonId", ""); lesson != "" {
		label = fmt.Sprintf("%s for lesson %s", label, lesson)
	}
	return label
}

func (p Payload) text(key, fallback string) string {
	if value, ok := p[key]; ok {
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			return text
		}
	}
	return fallback
}

func (p Payload) count(key string) int {
	switch value := p[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
