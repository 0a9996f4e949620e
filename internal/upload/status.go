package upload

import (
	"fmt"

	"callqa/internal/services"
)

// Status is the client-visible lifecycle state of a submission.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSelected   Status = "selected"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusDuplicate  Status = "duplicate"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed_out"
)

var allStatuses = []Status{
	StatusIdle,
	StatusSelected,
	StatusUploading,
	StatusProcessing,
	StatusDuplicate,
	StatusCompleted,
	StatusFailed,
	StatusTimedOut,
}

// AllStatuses returns every lifecycle status in order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, bool) {
	for _, s := range allStatuses {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// Active reports whether the submission blocks a new selection.
func (s Status) Active() bool {
	switch s {
	case StatusSelected, StatusUploading, StatusProcessing:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions happen without user action.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDuplicate, StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Succeeded reports whether an evaluation is available. A duplicate upload
// succeeds with the evaluation of the earlier submission.
func (s Status) Succeeded() bool {
	return s == StatusCompleted || s == StatusDuplicate
}

// statusError maps a failed terminal status onto the services taxonomy.
func statusError(status Status, message string) error {
	switch status {
	case StatusFailed:
		return services.Wrap(services.ErrRemoteFailure, "upload", "process audio", message, nil)
	case StatusTimedOut:
		return services.Wrap(services.ErrTimeout, "upload", "poll status", message, nil)
	case StatusIdle:
		return services.Wrap(services.ErrValidation, "upload", "wait", "submission removed", nil)
	default:
		if status.IsTerminal() || status.Active() {
			return nil
		}
		return fmt.Errorf("unknown submission status %q", status)
	}
}
