package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"callqa/internal/config"
)

const userAgent = "CallQA-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventUploadCompleted Event = "upload_completed"
	EventUploadDuplicate Event = "upload_duplicate"
	EventUploadFailed    Event = "upload_failed"
	EventUploadTimedOut  Event = "upload_timed_out"
	EventTest            Event = "test"
)

// Payload carries event fields. Known keys: fileName, fileSize, avaliacaoId,
// fileId, agentId, error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		failed:    cfg.Notifications.Failed,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	failed    bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil {
		return nil
	}
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventUploadCompleted, EventUploadDuplicate:
		return n.completed
	case EventUploadFailed, EventUploadTimedOut:
		return n.failed
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	name := payloadString(payload, "fileName")
	if name == "" {
		name = "audio"
	}
	switch event {
	case EventUploadCompleted:
		body := fmt.Sprintf("✅ Evaluation ready: %s", describeFile(name, payload))
		if id := payloadString(payload, "avaliacaoId"); id != "" {
			body += fmt.Sprintf("\nAvaliação: %s", id)
		}
		return message{
			title: "CallQA - Evaluation Ready",
			body:  body,
			tags:  []string{"callqa", "upload", "completed"},
		}, true
	case EventUploadDuplicate:
		return message{
			title: "CallQA - Duplicate Audio",
			body:  fmt.Sprintf("♻️ Already processed: %s", describeFile(name, payload)),
			tags:  []string{"callqa", "upload", "duplicate"},
		}, true
	case EventUploadFailed:
		reason := payloadString(payload, "error")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "CallQA - Processing Failed",
			body:     fmt.Sprintf("❌ %s: %s", name, reason),
			tags:     []string{"callqa", "error", "alert"},
			priority: "high",
		}, true
	case EventUploadTimedOut:
		body := fmt.Sprintf("⏳ Gave up waiting for %s", name)
		if id := payloadString(payload, "fileId"); id != "" {
			body += fmt.Sprintf("\nResume with: callqa status %s", id)
		}
		return message{
			title: "CallQA - Still Processing",
			body:  body,
			tags:  []string{"callqa", "upload", "timeout"},
		}, true
	case EventTest:
		return message{
			title:    "CallQA - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"callqa", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func describeFile(name string, payload Payload) string {
	size, ok := payload["fileSize"].(int64)
	if !ok || size <= 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, humanize.Bytes(uint64(size)))
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

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
