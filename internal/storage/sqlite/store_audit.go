package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/platform/id"
	"github.com/louisbranch/roundtable/internal/storage"
)

// AppendAuditRecord inserts one advancement trail record.
//
// The insert is unconditional; the trail is append-only and never updated.
func (s *Store) AppendAuditRecord(ctx context.Context, record storage.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.SessionID = strings.TrimSpace(record.SessionID)
	if record.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	record.Actor = strings.TrimSpace(record.Actor)
	if record.Actor == "" {
		return fmt.Errorf("actor is required")
	}
	record.Action = strings.TrimSpace(record.Action)
	if record.Action == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(record.ID) == "" {
		generated, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate audit record id: %w", err)
		}
		record.ID = generated
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO audit_records (id, session_id, actor, action, prev_entry_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SessionID,
		record.Actor,
		record.Action,
		strings.TrimSpace(record.PrevEntryID),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// ListAuditRecords returns the advancement trail of a session, oldest first.
func (s *Store) ListAuditRecords(ctx context.Context, sessionID string) ([]storage.AuditRecord, error) {
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
		`SELECT id, session_id, actor, action, prev_entry_id, created_at
		 FROM audit_records
		 WHERE session_id = ?
		 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]storage.AuditRecord, 0)
	for rows.Next() {
		var record storage.AuditRecord
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Actor,
			&record.Action,
			&record.PrevEntryID,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
