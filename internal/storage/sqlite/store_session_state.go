package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/storage"
)

// GetSessionState loads the active-entry pointer for a session.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) (storage.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionState{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionState{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, current_entry_id, updated_at
		 FROM session_states
		 WHERE session_id = ?`,
		sessionID,
	)

	var state storage.SessionState
	var currentEntryID sql.NullString
	var updatedAt int64
	if err := row.Scan(&state.SessionID, &currentEntryID, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.SessionState{}, storage.ErrNotFound
		}
		return storage.SessionState{}, fmt.Errorf("get session state: %w", err)
	}
	if currentEntryID.Valid {
		state.CurrentEntryID = currentEntryID.String
	}
	state.UpdatedAt = fromMillis(updatedAt)
	return state, nil
}

// PutSessionState upserts the active-entry pointer for a session.
//
// This is the initialization path; advancement must go through
// CompareAndSwapCurrentEntry instead.
func (s *Store) PutSessionState(ctx context.Context, state storage.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	state.SessionID = strings.TrimSpace(state.SessionID)
	if state.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO session_states (session_id, current_entry_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   current_entry_id = excluded.current_entry_id,
		   updated_at = excluded.updated_at`,
		state.SessionID,
		toNullString(state.CurrentEntryID),
		toMillis(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session state: %w", err)
	}
	return nil
}

// CompareAndSwapCurrentEntry conditionally moves the active-entry pointer.
//
// The precondition check and the write are one UPDATE statement so two
// concurrent advances observing the same expected value cannot both win;
// SQLite serializes the statement and only one sees an affected row. Empty
// identifiers compare and store as NULL (the IS operator matches NULL
// parameters where = would not).
func (s *Store) CompareAndSwapCurrentEntry(ctx context.Context, sessionID, expectedCurrentEntryID, newCurrentEntryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE session_states
		 SET current_entry_id = ?, updated_at = ?
		 WHERE session_id = ? AND current_entry_id IS ?`,
		toNullString(newCurrentEntryID),
		toMillis(time.Now().UTC()),
		sessionID,
		toNullString(expectedCurrentEntryID),
	)
	if err != nil {
		return fmt.Errorf("compare and swap current entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("compare and swap current entry rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// The conditional write already failed atomically; this read only
	// distinguishes a missing row from a lost race.
	var found int
	row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM session_states WHERE session_id = ?`, sessionID)
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return storage.ErrNotFound
		}
		return fmt.Errorf("inspect session state: %w", err)
	}
	return storage.ErrConflict
}
