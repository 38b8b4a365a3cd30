package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/roundtable/internal/storage"
)

// IncrementTopicTally upsert-increments the per-session topic counter.
//
// Increments are not deduplicated; client retries double-count. Callers
// must treat tallies as best-effort telemetry, not a ledger.
func (s *Store) IncrementTopicTally(ctx context.Context, sessionID, label string) error {
	return s.incrementTally(ctx, "topic_tallies", "label", sessionID, label)
}

// IncrementKeywordTally upsert-increments the per-session keyword counter.
func (s *Store) IncrementKeywordTally(ctx context.Context, sessionID, tag string) error {
	return s.incrementTally(ctx, "keyword_tallies", "tag", sessionID, tag)
}

// GetTopicTallies returns all topic counters of a session by label.
func (s *Store) GetTopicTallies(ctx context.Context, sessionID string) ([]storage.Tally, error) {
	return s.listTallies(ctx, "topic_tallies", "label", sessionID)
}

// GetKeywordTallies returns all keyword counters of a session by tag.
func (s *Store) GetKeywordTallies(ctx context.Context, sessionID string) ([]storage.Tally, error) {
	return s.listTallies(ctx, "keyword_tallies", "tag", sessionID)
}

func (s *Store) incrementTally(ctx context.Context, table, keyColumn, sessionID, key string) error {
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
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s is required", keyColumn)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (session_id, %s, count)
		 VALUES (?, ?, 1)
		 ON CONFLICT(session_id, %s) DO UPDATE SET count = count + 1`,
		table, keyColumn, keyColumn,
	)
	if _, err := s.sqlDB.ExecContext(ctx, query, sessionID, key); err != nil {
		return fmt.Errorf("increment %s tally: %w", keyColumn, err)
	}
	return nil
}

func (s *Store) listTallies(ctx context.Context, table, keyColumn, sessionID string) ([]storage.Tally, error) {
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

	query := fmt.Sprintf(
		`SELECT session_id, %s, count
		 FROM %s
		 WHERE session_id = ?
		 ORDER BY %s`,
		keyColumn, table, keyColumn,
	)
	rows, err := s.sqlDB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list %s tallies: %w", keyColumn, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tallies := make([]storage.Tally, 0)
	for rows.Next() {
		var tally storage.Tally
		if err := rows.Scan(&tally.SessionID, &tally.Label, &tally.Count); err != nil {
			return nil, fmt.Errorf("scan %s tally: %w", keyColumn, err)
		}
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s tallies: %w", keyColumn, err)
	}
	return tallies, nil
}
