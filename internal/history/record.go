package history

import (
	"database/sql"
	"errors"
	"time"

	"callqa/internal/upload"
)

// Record is the persisted view of one submission.
type Record struct {
	LocalID         string        `json:"local_id"`
	FileName        string        `json:"file_name"`
	FilePath        string        `json:"file_path,omitempty"`
	FileSizeBytes   int64         `json:"file_size_bytes"`
	ContentType     string        `json:"content_type,omitempty"`
	CarteiraID      string        `json:"carteira_id"`
	AgentID         string        `json:"agent_id"`
	Status          upload.Status `json:"status"`
	Progress        int           `json:"progress"`
	Message         string        `json:"message,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	FileID          string        `json:"file_id,omitempty"`
	CallID          string        `json:"call_id,omitempty"`
	AvaliacaoID     string        `json:"avaliacao_id,omitempty"`
	LastKnownStatus string        `json:"last_known_status,omitempty"`
	Duplicate       bool          `json:"duplicate"`
	PollAttempts    int           `json:"poll_attempts"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// FromSnapshot flattens a coordinator snapshot into a record.
func FromSnapshot(snap upload.Snapshot) Record {
	rec := Record{
		LocalID:       snap.LocalID,
		FileName:      snap.FileName,
		FilePath:      snap.FilePath,
		FileSizeBytes: snap.FileSizeBytes,
		ContentType:   snap.ContentType,
		CarteiraID:    snap.CarteiraID,
		AgentID:       snap.AgentID,
		Status:        snap.Status,
		Progress:      snap.Progress,
		Message:       snap.Message,
		ErrorKind:     snap.ErrorKind,
		PollAttempts:  snap.PollAttempts,
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
	}
	if ref := snap.Reference; ref != nil {
		rec.FileID = ref.FileID
		rec.CallID = ref.CallID
		rec.AvaliacaoID = ref.AvaliacaoID
		rec.LastKnownStatus = ref.LastKnownStatus
		rec.Duplicate = ref.Duplicate
	}
	return rec
}

// Resumable reports whether the backend may still produce an evaluation for
// the record: it was accepted but never reached a terminal outcome locally.
func (r Record) Resumable() bool {
	if r.FileID == "" || r.AvaliacaoID != "" {
		return false
	}
	switch r.Status {
	case upload.StatusProcessing, upload.StatusTimedOut, upload.StatusUploading:
		return true
	default:
		return false
	}
}

const recordColumns = "local_id, file_name, file_path, file_size_bytes, content_type, carteira_id, agent_id, status, progress, message, error_kind, file_id, call_id, avaliacao_id, last_known_status, duplicate, poll_attempts, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		localID         string
		fileName        string
		filePath        sql.NullString
		fileSize        sql.NullInt64
		contentType     sql.NullString
		carteiraID      string
		agentID         string
		statusStr       string
		progress        sql.NullInt64
		message         sql.NullString
		errorKind       sql.NullString
		fileID          sql.NullString
		callID          sql.NullString
		avaliacaoID     sql.NullString
		lastKnownStatus sql.NullString
		duplicate       sql.NullInt64
		pollAttempts    sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)
	if err := scanner.Scan(
		&localID,
		&fileName,
		&filePath,
		&fileSize,
		&contentType,
		&carteiraID,
		&agentID,
		&statusStr,
		&progress,
		&message,
		&errorKind,
		&fileID,
		&callID,
		&avaliacaoID,
		&lastKnownStatus,
		&duplicate,
		&pollAttempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Record{
		LocalID:         localID,
		FileName:        fileName,
		FilePath:        filePath.String,
		FileSizeBytes:   fileSize.Int64,
		ContentType:     contentType.String,
		CarteiraID:      carteiraID,
		AgentID:         agentID,
		Status:          upload.Status(statusStr),
		Progress:        int(progress.Int64),
		Message:         message.String,
		ErrorKind:       errorKind.String,
		FileID:          fileID.String,
		CallID:          callID.String,
		AvaliacaoID:     avaliacaoID.String,
		LastKnownStatus: lastKnownStatus.String,
		Duplicate:       duplicate.Valid && duplicate.Int64 != 0,
		PollAttempts:    int(pollAttempts.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
