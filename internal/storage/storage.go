// Package storage defines the narrow data-access contracts for the turns
// service. Implementations provide simple reads, conditional writes, and
// inserts; all business logic lives in the advancer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/roundtable/internal/turn"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a conditional write lost to a concurrent writer.
var ErrConflict = errors.New("record conflict")

// SessionState is the per-session pointer to the currently active entry.
// CurrentEntryID is empty when the queue is exhausted.
type SessionState struct {
	SessionID      string
	CurrentEntryID string
	UpdatedAt      time.Time
}

// SessionEntry is one turn slot within a session.
type SessionEntry struct {
	ID         string
	SessionID  string
	OrderIndex int
	Status     turn.Status
	StartedAt  *time.Time
	EndedAt    *time.Time
}

// Tally is one aggregate counter row.
type Tally struct {
	SessionID string
	Label     string
	Count     int64
}

// AuditRecord is one append-only advancement trail entry.
type AuditRecord struct {
	ID          string
	SessionID   string
	Actor       string
	Action      string
	PrevEntryID string
	CreatedAt   time.Time
}

// SessionStateStore holds the per-session active-entry pointer.
type SessionStateStore interface {
	// GetSessionState returns the state row or ErrNotFound.
	GetSessionState(ctx context.Context, sessionID string) (SessionState, error)
	// PutSessionState upserts the state row; used by initialization only.
	PutSessionState(ctx context.Context, state SessionState) error
	// CompareAndSwapCurrentEntry conditionally moves the pointer from
	// expectedCurrentEntryID to newCurrentEntryID in a single atomic
	// statement. Empty ids map to NULL. Returns ErrConflict when the
	// precondition no longer holds and ErrNotFound when no row exists.
	CompareAndSwapCurrentEntry(ctx context.Context, sessionID, expectedCurrentEntryID, newCurrentEntryID string) error
}

// EntryQueue is the ordered per-session collection of turn entries.
type EntryQueue interface {
	// PutEntry inserts a new entry; used by initialization only.
	PutEntry(ctx context.Context, entry SessionEntry) error
	// GetEntry returns one entry or ErrNotFound.
	GetEntry(ctx context.Context, entryID string) (SessionEntry, error)
	// ListEntries returns all entries of a session by ascending order index.
	ListEntries(ctx context.Context, sessionID string) ([]SessionEntry, error)
	// NextPendingEntry returns the pending entry with the smallest order
	// index, never the one named by excludeEntryID; found is false when no
	// other pending entry remains. The exclusion keeps an interrupted
	// advancement (pointer already moved, entry still pending) from picking
	// the pointed-at entry as its own successor.
	NextPendingEntry(ctx context.Context, sessionID, excludeEntryID string) (entry SessionEntry, found bool, err error)
	// CloseEntry sets a terminal status and stamps ended_at. Not idempotent:
	// the caller must gate it behind a won compare-and-swap.
	CloseEntry(ctx context.Context, entryID string, terminal turn.Status, endedAt time.Time) error
	// PromoteEntry sets status speaking and stamps started_at.
	PromoteEntry(ctx context.Context, entryID string, startedAt time.Time) error
}

// TallyStore holds the best-effort aggregate counters. Increments are not
// deduplicated; repeated calls double-count.
type TallyStore interface {
	IncrementTopicTally(ctx context.Context, sessionID, label string) error
	IncrementKeywordTally(ctx context.Context, sessionID, tag string) error
	GetTopicTallies(ctx context.Context, sessionID string) ([]Tally, error)
	GetKeywordTallies(ctx context.Context, sessionID string) ([]Tally, error)
}

// AuditStore holds the append-only advancement trail.
type AuditStore interface {
	AppendAuditRecord(ctx context.Context, record AuditRecord) error
	ListAuditRecords(ctx context.Context, sessionID string) ([]AuditRecord, error)
}

// Store aggregates every contract the turns service needs.
type Store interface {
	SessionStateStore
	EntryQueue
	TallyStore
	AuditStore
}
