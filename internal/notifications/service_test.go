package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"callqa/internal/config"
	"callqa/internal/notifications"
	"callqa/internal/upload"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventUploadCompleted, notifications.Payload{"fileName": "a.mp3"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "completed",
			event: notifications.EventUploadCompleted,
			payload: notifications.Payload{
				"fileName":    "call-01.mp3",
				"fileSize":    int64(2_000_000),
				"avaliacaoId": "99",
			},
			expectTitle:   "CallQA - Evaluation Ready",
			expectMessage: "✅ Evaluation ready: call-01.mp3 (2.0 MB)\nAvaliação: 99",
			expectTags:    "callqa,upload,completed",
		},
		{
			name:          "duplicate",
			event:         notifications.EventUploadDuplicate,
			payload:       notifications.Payload{"fileName": "call-02.wav"},
			expectTitle:   "CallQA - Duplicate Audio",
			expectMessage: "♻️ Already processed: call-02.wav",
			expectTags:    "callqa,upload,duplicate",
		},
		{
			name:           "failed",
			event:          notifications.EventUploadFailed,
			payload:        notifications.Payload{"fileName": "call-03.m4a", "error": "Falha na transcrição"},
			expectTitle:    "CallQA - Processing Failed",
			expectMessage:  "❌ call-03.m4a: Falha na transcrição",
			expectTags:     "callqa,error,alert",
			expectPriority: "high",
		},
		{
			name:          "timed out",
			event:         notifications.EventUploadTimedOut,
			payload:       notifications.Payload{"fileName": "call-04.mp3", "fileId": "5"},
			expectTitle:   "CallQA - Still Processing",
			expectMessage: "⏳ Gave up waiting for call-04.mp3\nResume with: callqa status 5",
			expectTags:    "callqa,upload,timeout",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "CallQA - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "callqa,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Failed = false

	svc := notifications.NewService(&cfg)
	disabled := []notifications.Event{
		notifications.EventUploadCompleted,
		notifications.EventUploadDuplicate,
		notifications.EventUploadFailed,
		notifications.EventUploadTimedOut,
		notifications.Event("unknown"),
	}
	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"fileName": "x.mp3"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

type recordingService struct {
	events []notifications.Event
	last   notifications.Payload
}

func (r *recordingService) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, event)
	r.last = payload
	return nil
}

func TestObserverPublishesTerminalOutcomeOnce(t *testing.T) {
	svc := &recordingService{}
	observe := notifications.Observer(svc, nil)

	snap := upload.Snapshot{Submission: upload.Submission{LocalID: "a", FileName: "a.mp3", Status: upload.StatusUploading}}
	observe(snap)
	snap.Status = upload.StatusProcessing
	observe(snap)
	snap.Status = upload.StatusCompleted
	snap.Reference = &upload.RemoteJobReference{FileID: "5", AvaliacaoID: "99"}
	observe(snap)
	observe(snap)

	if len(svc.events) != 1 || svc.events[0] != notifications.EventUploadCompleted {
		t.Fatalf("unexpected events: %v", svc.events)
	}
	if svc.last["avaliacaoId"] != "99" || svc.last["fileName"] != "a.mp3" {
		t.Fatalf("unexpected payload: %v", svc.last)
	}

	failed := upload.Snapshot{Submission: upload.Submission{LocalID: "b", FileName: "b.mp3", Status: upload.StatusFailed, Message: "X"}}
	observe(failed)
	if len(svc.events) != 2 || svc.events[1] != notifications.EventUploadFailed || svc.last["error"] != "X" {
		t.Fatalf("unexpected failure publish: %v %v", svc.events, svc.last)
	}
}

func TestObserverSwallowsDeliveryErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	observe := notifications.Observer(notifications.NewService(&cfg), nil)
	observe(upload.Snapshot{Submission: upload.Submission{LocalID: "c", Status: upload.StatusTimedOut}})
	if calls.Load() != 1 {
		t.Fatalf("expected one delivery attempt, got %d", calls.Load())
	}
}
