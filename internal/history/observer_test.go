package history_test

import (
	"context"
	"testing"
	"time"

	"callqa/internal/history"
	"callqa/internal/services/qaapi"
	"callqa/internal/testsupport"
	"callqa/internal/upload"
)

func TestRecorderPersistsStatusChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	observe := store.Recorder(nil)

	snap := snapshotFor("rec-1", upload.StatusUploading, time.Now().UTC())
	observe(snap)

	// Progress alone is not written.
	snap.Progress = 40
	observe(snap)
	rec, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil || rec.Progress != 0 {
		t.Fatalf("expected progress-only update skipped, got %+v", rec)
	}

	snap.Status = upload.StatusFailed
	snap.Message = "disk full"
	observe(snap)
	rec, err = store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != upload.StatusFailed || rec.Message != "disk full" || rec.Progress != 40 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	observe(upload.Snapshot{Submission: upload.Submission{Status: upload.StatusIdle}})
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("idle snapshot should not add rows, got %d", len(records))
	}
}

func TestRecorderPersistsPollAttemptsAndReference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	observe := store.Recorder(nil)

	snap := snapshotFor("rec-2", upload.StatusProcessing, time.Now().UTC())
	snap.Message = "processando"
	snap.Reference = &upload.RemoteJobReference{FileID: "42"}
	observe(snap)

	for attempt := 1; attempt <= 5; attempt++ {
		snap.PollAttempts = attempt
		observe(snap)
	}
	snap.Reference = &upload.RemoteJobReference{FileID: "42", CallID: "c-1", LastKnownStatus: "transcrevendo"}
	observe(snap)

	// Remove resets the coordinator to idle; the last write must stand.
	observe(upload.Snapshot{Submission: upload.Submission{Status: upload.StatusIdle}})

	rec, err := store.Get(ctx, "rec-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil || rec.PollAttempts != 5 {
		t.Fatalf("expected 5 poll attempts, got %+v", rec)
	}
	if rec.FileID != "42" || rec.CallID != "c-1" || rec.LastKnownStatus != "transcrevendo" {
		t.Fatalf("reference change not persisted: %+v", rec)
	}
}

func TestApplyStatus(t *testing.T) {
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		resp        qaapi.StatusResponse
		wantStatus  upload.Status
		wantMessage string
		wantKind    string
	}{
		{
			name:        "evaluation ready",
			resp:        qaapi.StatusResponse{Status: "concluido", AvaliacaoID: "99", CallID: "c1"},
			wantStatus:  upload.StatusCompleted,
			wantMessage: "concluido",
		},
		{
			name:        "backend failure with message",
			resp:        qaapi.StatusResponse{Status: qaapi.StatusFailed, ErrorMsg: "X"},
			wantStatus:  upload.StatusFailed,
			wantMessage: "X",
			wantKind:    "remote_failure",
		},
		{
			name:        "backend failure without message",
			resp:        qaapi.StatusResponse{Status: qaapi.StatusFailed},
			wantStatus:  upload.StatusFailed,
			wantMessage: upload.ProcessingFailedMessage,
			wantKind:    "remote_failure",
		},
		{
			name:        "still processing",
			resp:        qaapi.StatusResponse{Status: "transcrevendo"},
			wantStatus:  upload.StatusTimedOut,
			wantMessage: "transcrevendo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := history.Record{LocalID: "x", Status: upload.StatusTimedOut, FileID: "5"}
			rec.ApplyStatus(tt.resp, now)
			if rec.Status != tt.wantStatus {
				t.Fatalf("Status = %q, want %q", rec.Status, tt.wantStatus)
			}
			if rec.Message != tt.wantMessage {
				t.Fatalf("Message = %q, want %q", rec.Message, tt.wantMessage)
			}
			if rec.ErrorKind != tt.wantKind {
				t.Fatalf("ErrorKind = %q, want %q", rec.ErrorKind, tt.wantKind)
			}
			if !rec.UpdatedAt.Equal(now) {
				t.Fatalf("UpdatedAt = %v", rec.UpdatedAt)
			}
		})
	}
}
