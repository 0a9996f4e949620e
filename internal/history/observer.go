package history

import (
	"context"
	"log/slog"
	"time"

	"callqa/internal/logging"
	"callqa/internal/services"
	"callqa/internal/services/qaapi"
	"callqa/internal/upload"
)

const observerWriteTimeout = 5 * time.Second

// recordKey holds the snapshot fields whose change warrants a write.
type recordKey struct {
	localID      string
	status       upload.Status
	message      string
	pollAttempts int
	reference    upload.RemoteJobReference
}

func keyOf(snap upload.Snapshot) recordKey {
	key := recordKey{
		localID:      snap.LocalID,
		status:       snap.Status,
		message:      snap.Message,
		pollAttempts: snap.PollAttempts,
	}
	if snap.Reference != nil {
		key.reference = *snap.Reference
	}
	return key
}

// Recorder returns a coordinator observer that persists every change of
// status, message, poll attempts, or remote reference. Progress-only updates
// are skipped.
func (s *Store) Recorder(logger *slog.Logger) upload.Observer {
	logger = logging.NewComponentLogger(logger, "history")
	var last recordKey
	return func(snap upload.Snapshot) {
		if snap.Idle() {
			return
		}
		key := keyOf(snap)
		if key == last {
			return
		}
		ctx, cancel := context.WithTimeout(services.WithSubmissionID(context.Background(), snap.LocalID), observerWriteTimeout)
		defer cancel()
		if err := s.Upsert(ctx, snap); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, logger), "history write failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on "+s.path),
				logging.String(logging.FieldImpact, "submission missing from 'callqa history'"),
			)
			return
		}
		last = key
	}
}

// ApplyStatus folds a backend status response into the record the same way
// the coordinator does for a poll tick.
func (r *Record) ApplyStatus(resp qaapi.StatusResponse, now time.Time) {
	r.UpdatedAt = now
	if !resp.CallID.Empty() {
		r.CallID = resp.CallID.String()
	}
	if resp.Status != "" {
		r.LastKnownStatus = resp.Status
	}
	switch {
	case !resp.AvaliacaoID.Empty():
		r.AvaliacaoID = resp.AvaliacaoID.String()
		r.Status = upload.StatusCompleted
		r.Message = resp.Status
		r.ErrorKind = ""
	case resp.Failed():
		r.Status = upload.StatusFailed
		r.Message = resp.ErrorMsg
		if r.Message == "" {
			r.Message = upload.ProcessingFailedMessage
		}
		r.ErrorKind = services.Kind(services.ErrRemoteFailure)
	default:
		r.Message = resp.Status
	}
}
