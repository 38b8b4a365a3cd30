// Package advancer implements the turn-advancement state machine.
//
// Advance is the only operation with business logic in the service; the
// storage contracts it drives are deliberately narrow reads, conditional
// writes, and inserts. Correctness under concurrent callers comes entirely
// from the datastore's atomic compare-and-swap on the session pointer: the
// swap is the gate, and every mutation after it runs at most once per won
// swap.
package advancer

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/errors"
	"github.com/louisbranch/roundtable/internal/storage"
	"github.com/louisbranch/roundtable/internal/turn"
)

// Stores groups the storage interfaces the advancer drives.
type Stores struct {
	SessionState storage.SessionStateStore
	Entries      storage.EntryQueue
	Tallies      storage.TallyStore
	Audit        storage.AuditStore
}

// Validate checks that every store field is non-nil. Call this at service
// construction time so Advance does not need per-call nil guards.
func (s Stores) Validate() error {
	var missing []string
	if s.SessionState == nil {
		missing = append(missing, "SessionState")
	}
	if s.Entries == nil {
		missing = append(missing, "Entries")
	}
	if s.Tallies == nil {
		missing = append(missing, "Tallies")
	}
	if s.Audit == nil {
		missing = append(missing, "Audit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing stores: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Request carries one advancement attempt.
type Request struct {
	SessionID string
	// ExpectedCurrentEntryID is the caller's view of the active entry. The
	// advancement proceeds only when it still matches reality at write time.
	ExpectedCurrentEntryID string
	Action                 turn.Action
	// TopLabel optionally names the discussed topic for the tally counters.
	TopLabel string
	// TopTags optionally carry keyword tags; only the first three distinct
	// non-empty tags are counted.
	TopTags []string
}

// Result reports a successful advancement.
type Result struct {
	// SessionState is the pointer after the swap; CurrentEntryID is empty
	// when the queue is exhausted.
	SessionState storage.SessionState
	// NextEntry is the newly promoted entry, nil when none remained.
	NextEntry *storage.SessionEntry
}

// Advancer coordinates turn advancement for all sessions.
type Advancer struct {
	stores Stores
	clock  func() time.Time
}

// New creates an advancer over the provided stores.
func New(stores Stores) (*Advancer, error) {
	if err := stores.Validate(); err != nil {
		return nil, err
	}
	return &Advancer{stores: stores, clock: time.Now}, nil
}

// Advance closes the current turn and opens the next one.
//
// The pipeline is strictly sequential with no retry and no compensation:
// the first failure aborts the remaining steps and surfaces to the caller.
// Steps after the compare-and-swap are not covered by it; a late failure
// leaves the pointer move and entry transitions committed, which a caller
// recovers from by re-reading state before retrying.
func (a *Advancer) Advance(ctx context.Context, req Request) (Result, error) {
	if a == nil {
		return Result{}, errors.New(errors.CodeUnknown, "advancer is not configured")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return Result{}, errors.New(errors.CodeInvalidSessionID, "session id is required")
	}
	expected := strings.TrimSpace(req.ExpectedCurrentEntryID)
	if expected == "" {
		return Result{}, errors.New(errors.CodeInvalidExpected, "expected current entry id is required")
	}
	if req.Action != turn.ActionDone && req.Action != turn.ActionSkipped {
		return Result{}, errors.New(errors.CodeInvalidAction, "action must be done or skipped")
	}

	state, err := a.stores.SessionState.GetSessionState(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return Result{}, errors.New(errors.CodeQueueNotInitialized,
				fmt.Sprintf("turn queue for session %s is not initialized", sessionID))
		}
		return Result{}, errors.Wrap(errors.CodeStorageFailure, "get session state", err)
	}
	if state.CurrentEntryID == "" {
		return Result{}, errors.New(errors.CodeQueueNotInitialized,
			fmt.Sprintf("session %s has no active entry", sessionID))
	}
	if state.CurrentEntryID != expected {
		return Result{}, errors.New(errors.CodeAdvanceConflict,
			"another party already advanced the turn")
	}

	// The expected entry is excluded from the candidates: after an
	// interrupted advancement the pointer can sit on a still-pending entry,
	// and a recovery call must promote its successor, not the entry itself.
	nextEntry, hasNext, err := a.stores.Entries.NextPendingEntry(ctx, sessionID, expected)
	if err != nil {
		return Result{}, errors.Wrap(errors.CodeStorageFailure, "find next pending entry", err)
	}
	newCurrentID := ""
	if hasNext {
		newCurrentID = nextEntry.ID
	}

	// The fused gate: precondition check and pointer write in one atomic
	// statement. Losing here means another caller advanced first; nothing
	// has been mutated yet.
	if err := a.stores.SessionState.CompareAndSwapCurrentEntry(ctx, sessionID, expected, newCurrentID); err != nil {
		switch {
		case stderrors.Is(err, storage.ErrConflict):
			return Result{}, errors.New(errors.CodeAdvanceConflict,
				"another party already advanced the turn")
		case stderrors.Is(err, storage.ErrNotFound):
			return Result{}, errors.New(errors.CodeQueueNotInitialized,
				fmt.Sprintf("turn queue for session %s is not initialized", sessionID))
		default:
			return Result{}, errors.Wrap(errors.CodeStorageFailure, "swap current entry", err)
		}
	}

	now := a.now()
	if err := a.stores.Entries.CloseEntry(ctx, expected, req.Action.TerminalStatus(), now); err != nil {
		return Result{}, errors.Wrap(errors.CodeStorageFailure, "close current entry", err)
	}

	var promoted *storage.SessionEntry
	if hasNext {
		if err := a.stores.Entries.PromoteEntry(ctx, nextEntry.ID, now); err != nil {
			return Result{}, errors.Wrap(errors.CodeStorageFailure, "promote next entry", err)
		}
		nextEntry.Status = turn.StatusSpeaking
		nextEntry.StartedAt = &now
		promoted = &nextEntry
	}

	// Best-effort tallies: not deduplicated, so a retried request counts
	// twice. Empty labels and tags are skipped, not errors.
	if label := strings.TrimSpace(req.TopLabel); label != "" {
		if err := a.stores.Tallies.IncrementTopicTally(ctx, sessionID, label); err != nil {
			return Result{}, errors.Wrap(errors.CodeStorageFailure, "increment topic tally", err)
		}
	}
	for _, tag := range turn.NormalizeTags(req.TopTags) {
		if err := a.stores.Tallies.IncrementKeywordTally(ctx, sessionID, tag); err != nil {
			return Result{}, errors.Wrap(errors.CodeStorageFailure, "increment keyword tally", err)
		}
	}

	if err := a.stores.Audit.AppendAuditRecord(ctx, storage.AuditRecord{
		SessionID:   sessionID,
		Actor:       turn.AnonymousActor,
		Action:      string(req.Action),
		PrevEntryID: expected,
		CreatedAt:   now,
	}); err != nil {
		return Result{}, errors.Wrap(errors.CodeStorageFailure, "append audit record", err)
	}

	return Result{
		SessionState: storage.SessionState{
			SessionID:      sessionID,
			CurrentEntryID: newCurrentID,
			UpdatedAt:      now,
		},
		NextEntry: promoted,
	}, nil
}

func (a *Advancer) now() time.Time {
	if a.clock == nil {
		return time.Now().UTC()
	}
	return a.clock().UTC()
}
