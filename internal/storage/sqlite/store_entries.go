package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/storage"
	"github.com/louisbranch/roundtable/internal/turn"
)

// PutEntry inserts a new session entry.
//
// This is the initialization path; lifecycle transitions must go through
// CloseEntry and PromoteEntry.
func (s *Store) PutEntry(ctx context.Context, entry storage.SessionEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	entry.SessionID = strings.TrimSpace(entry.SessionID)
	if entry.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if entry.OrderIndex < 0 {
		return fmt.Errorf("order index must not be negative")
	}
	if !entry.Status.Valid() {
		return fmt.Errorf("invalid entry status %q", entry.Status)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO session_entries (id, session_id, order_index, status, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SessionID,
		entry.OrderIndex,
		string(entry.Status),
		toNullMillis(entry.StartedAt),
		toNullMillis(entry.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("put session entry: %w", err)
	}
	return nil
}

// GetEntry returns one session entry by id.
func (s *Store) GetEntry(ctx context.Context, entryID string) (storage.SessionEntry, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionEntry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionEntry{}, fmt.Errorf("storage is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return storage.SessionEntry{}, fmt.Errorf("entry id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, session_id, order_index, status, started_at, ended_at
		 FROM session_entries
		 WHERE id = ?`,
		entryID,
	)
	return scanEntry(row)
}

// ListEntries returns every entry of a session by ascending order index.
func (s *Store) ListEntries(ctx context.Context, sessionID string) ([]storage.SessionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, session_id, order_index, status, started_at, ended_at
		 FROM session_entries
		 WHERE session_id = ?
		 ORDER BY order_index`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]storage.SessionEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session entries: %w", err)
	}
	return entries, nil
}

// NextPendingEntry returns the pending entry with the smallest order index,
// skipping excludeEntryID.
func (s *Store) NextPendingEntry(ctx context.Context, sessionID, excludeEntryID string) (storage.SessionEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionEntry{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionEntry{}, false, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionEntry{}, false, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, session_id, order_index, status, started_at, ended_at
		 FROM session_entries
		 WHERE session_id = ? AND status = ? AND id <> ?
		 ORDER BY order_index
		 LIMIT 1`,
		sessionID,
		string(turn.StatusPending),
		strings.TrimSpace(excludeEntryID),
	)
	entry, err := scanEntry(row)
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.SessionEntry{}, false, nil
		}
		return storage.SessionEntry{}, false, err
	}
	return entry, true, nil
}

// CloseEntry sets a terminal status and stamps ended_at.
//
// Not idempotent: a second call restamps ended_at. The advancer's
// compare-and-swap gate ensures it runs at most once per advancement.
func (s *Store) CloseEntry(ctx context.Context, entryID string, terminal turn.Status, endedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("entry id is required")
	}
	if !terminal.Terminal() {
		return fmt.Errorf("status %q is not terminal", terminal)
	}
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE session_entries
		 SET status = ?, ended_at = ?
		 WHERE id = ?`,
		string(terminal),
		toMillis(endedAt),
		entryID,
	)
	if err != nil {
		return fmt.Errorf("close session entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session entry rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PromoteEntry sets status speaking and stamps started_at.
func (s *Store) PromoteEntry(ctx context.Context, entryID string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("entry id is required")
	}
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE session_entries
		 SET status = ?, started_at = ?
		 WHERE id = ?`,
		string(turn.StatusSpeaking),
		toMillis(startedAt),
		entryID,
	)
	if err != nil {
		return fmt.Errorf("promote session entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote session entry rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (storage.SessionEntry, error) {
	var entry storage.SessionEntry
	var status string
	var startedAt sql.NullInt64
	var endedAt sql.NullInt64
	if err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.OrderIndex,
		&status,
		&startedAt,
		&endedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return storage.SessionEntry{}, storage.ErrNotFound
		}
		return storage.SessionEntry{}, fmt.Errorf("scan session entry: %w", err)
	}
	entry.Status = turn.Status(status)
	entry.StartedAt = fromNullMillis(startedAt)
	entry.EndedAt = fromNullMillis(endedAt)
	return entry, nil
}
