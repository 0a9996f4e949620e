package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"callqa/internal/config"
	"callqa/internal/upload"
)

// Store persists submission records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// ErrAmbiguousID is returned when an identifier prefix matches more than one record.
var ErrAmbiguousID = errors.New("identifier prefix matches more than one submission")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the history database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the history database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Save inserts or replaces the record keyed by LocalID.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.LocalID) == "" {
		return errors.New("record local id is empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO submissions (
            local_id, file_name, file_path, file_size_bytes, content_type, carteira_id, agent_id,
            status, progress, message, error_kind, file_id, call_id, avaliacao_id,
            last_known_status, duplicate, poll_attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(local_id) DO UPDATE SET
            file_name = excluded.file_name,
            file_path = excluded.file_path,
            file_size_bytes = excluded.file_size_bytes,
            content_type = excluded.content_type,
            carteira_id = excluded.carteira_id,
            agent_id = excluded.agent_id,
            status = excluded.status,
            progress = excluded.progress,
            message = excluded.message,
            error_kind = excluded.error_kind,
            file_id = excluded.file_id,
            call_id = excluded.call_id,
            avaliacao_id = excluded.avaliacao_id,
            last_known_status = excluded.last_known_status,
            duplicate = excluded.duplicate,
            poll_attempts = excluded.poll_attempts,
            updated_at = excluded.updated_at`,
		rec.LocalID,
		rec.FileName,
		nullableString(rec.FilePath),
		rec.FileSizeBytes,
		nullableString(rec.ContentType),
		rec.CarteiraID,
		rec.AgentID,
		string(rec.Status),
		rec.Progress,
		nullableString(rec.Message),
		nullableString(rec.ErrorKind),
		nullableString(rec.FileID),
		nullableString(rec.CallID),
		nullableString(rec.AvaliacaoID),
		nullableString(rec.LastKnownStatus),
		boolToInt(rec.Duplicate),
		rec.PollAttempts,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// Upsert records a coordinator snapshot. Idle snapshots carry no
// submission and are ignored.
func (s *Store) Upsert(ctx context.Context, snap upload.Snapshot) error {
	if snap.Idle() || snap.LocalID == "" {
		return nil
	}
	return s.Save(ctx, FromSnapshot(snap))
}

// Get returns the record whose local id equals or starts with id. It
// returns nil when nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM submissions WHERE local_id = ?`, id)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE local_id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT 2`,
		escapeLike(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get submission by prefix: %w", err)
	}
	defer rows.Close()
	matches, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
	}
}

// FindByFileID returns the newest record for a backend file id.
func (s *Store) FindByFileID(ctx context.Context, fileID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE file_id = ? ORDER BY created_at DESC LIMIT 1`,
		fileID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by file id: %w", err)
	}
	return rec, nil
}

// List returns records newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...upload.Status) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM submissions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at DESC, local_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Remove deletes one record by exact local id.
func (s *Store) Remove(ctx context.Context, localID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM submissions WHERE local_id = ?`, localID)
	if err != nil {
		return false, fmt.Errorf("remove submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear deletes records, restricted to the given statuses when any are
// supplied. It returns the number of rows removed.
func (s *Store) Clear(ctx context.Context, statuses ...upload.Status) (int64, error) {
	query := `DELETE FROM submissions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear submissions: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[upload.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[upload.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[upload.Status(status)] = count
	}
	return stats, rows.Err()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
