package notifications

import (
	"context"
	"log/slog"
	"time"

	"callqa/internal/logging"
	"callqa/internal/upload"
)

const publishTimeout = 15 * time.Second

// EventFor maps a terminal submission status to its notification event.
func EventFor(status upload.Status) (Event, bool) {
	switch status {
	case upload.StatusCompleted:
		return EventUploadCompleted, true
	case upload.StatusDuplicate:
		return EventUploadDuplicate, true
	case upload.StatusFailed:
		return EventUploadFailed, true
	case upload.StatusTimedOut:
		return EventUploadTimedOut, true
	default:
		return "", false
	}
}

// PayloadFor builds the event payload for a snapshot.
func PayloadFor(snap upload.Snapshot) Payload {
	payload := Payload{
		"fileName": snap.FileName,
		"fileSize": snap.FileSizeBytes,
		"agentId":  snap.AgentID,
	}
	if snap.Reference != nil {
		payload["fileId"] = snap.Reference.FileID
		payload["avaliacaoId"] = snap.Reference.AvaliacaoID
	}
	if snap.Status == upload.StatusFailed {
		payload["error"] = snap.Message
	}
	return payload
}

// Observer publishes each submission's terminal outcome once. Delivery
// failures are logged and never affect the submission.
func Observer(svc Service, logger *slog.Logger) upload.Observer {
	logger = logging.NewComponentLogger(logger, "notifications")
	var lastID string
	var lastStatus upload.Status
	return func(snap upload.Snapshot) {
		if svc == nil || !snap.Status.IsTerminal() {
			return
		}
		if snap.LocalID == lastID && snap.Status == lastStatus {
			return
		}
		lastID, lastStatus = snap.LocalID, snap.Status
		event, ok := EventFor(snap.Status)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := svc.Publish(ctx, event, PayloadFor(snap)); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.String("local_id", snap.LocalID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "no push notification for this submission"),
			)
		}
	}
}
