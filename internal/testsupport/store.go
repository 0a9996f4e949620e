package testsupport

import (
	"context"
	"testing"
	"time"

	"callqa/internal/config"
	"callqa/internal/history"
	"callqa/internal/upload"
)

// MustOpenStore opens the history database for the provided config and
// registers cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SaveRecord persists a record with the given id and status, filling the
// remaining required fields.
func SaveRecord(t testing.TB, store *history.Store, localID string, status upload.Status, created time.Time) history.Record {
	t.Helper()

	rec := history.Record{
		LocalID:    localID,
		FileName:   localID + ".mp3",
		CarteiraID: "1",
		AgentID:    "agent-1",
		Status:     status,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save %s: %v", localID, err)
	}
	return rec
}
