package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/roundtable/internal/storage"
	"github.com/louisbranch/roundtable/internal/turn"
)

func TestPutEntryValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry storage.SessionEntry
	}{
		{"missing id", storage.SessionEntry{SessionID: "s1", Status: turn.StatusPending}},
		{"missing session", storage.SessionEntry{ID: "e1", Status: turn.StatusPending}},
		{"negative order", storage.SessionEntry{ID: "e1", SessionID: "s1", OrderIndex: -1, Status: turn.StatusPending}},
		{"invalid status", storage.SessionEntry{ID: "e1", SessionID: "s1", Status: "paused"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.PutEntry(ctx, tc.entry); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPutEntryRejectsDuplicateOrderIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEntry(ctx, pendingEntry("e1", "s1", 0)); err != nil {
		t.Fatalf("put e1: %v", err)
	}
	if err := store.PutEntry(ctx, pendingEntry("e2", "s1", 0)); err == nil {
		t.Fatal("expected unique order_index violation")
	}
}

func TestGetEntryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := speakingEntry("e1", "s1", 3)
	if err := store.PutEntry(ctx, want); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	got, err := store.GetEntry(ctx, "e1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ID != "e1" || got.SessionID != "s1" || got.OrderIndex != 3 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.Status != turn.StatusSpeaking {
		t.Fatalf("status = %q", got.Status)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(*want.StartedAt) {
		t.Fatalf("started_at = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if got.EndedAt != nil {
		t.Fatalf("ended_at = %v, want nil", got.EndedAt)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetEntry(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListEntriesOrdersByOrderIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []storage.SessionEntry{
		pendingEntry("e3", "s1", 2),
		pendingEntry("e1", "s1", 0),
		pendingEntry("e2", "s1", 1),
		pendingEntry("x1", "other", 0),
	} {
		if err := store.PutEntry(ctx, entry); err != nil {
			t.Fatalf("put %s: %v", entry.ID, err)
		}
	}

	entries, err := store.ListEntries(ctx, "s1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, wantID := range []string{"e1", "e2", "e3"} {
		if entries[i].ID != wantID {
			t.Fatalf("entries[%d] = %q, want %q", i, entries[i].ID, wantID)
		}
	}
}

func TestNextPendingEntryPicksSmallestOrderIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []storage.SessionEntry{
		speakingEntry("e1", "s1", 0),
		pendingEntry("e3", "s1", 2),
		pendingEntry("e2", "s1", 1),
	} {
		if err := store.PutEntry(ctx, entry); err != nil {
			t.Fatalf("put %s: %v", entry.ID, err)
		}
	}

	entry, found, err := store.NextPendingEntry(ctx, "s1", "")
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if !found {
		t.Fatal("expected a pending entry")
	}
	if entry.ID != "e2" {
		t.Fatalf("next pending = %q, want e2", entry.ID)
	}
}

func TestNextPendingEntrySkipsExcludedEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []storage.SessionEntry{
		pendingEntry("e2", "s1", 1),
		pendingEntry("e3", "s1", 2),
	} {
		if err := store.PutEntry(ctx, entry); err != nil {
			t.Fatalf("put %s: %v", entry.ID, err)
		}
	}

	entry, found, err := store.NextPendingEntry(ctx, "s1", "e2")
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if !found {
		t.Fatal("expected a pending entry")
	}
	if entry.ID != "e3" {
		t.Fatalf("next pending = %q, want e3", entry.ID)
	}

	if err := store.CloseEntry(ctx, "e3", turn.StatusDone, time.Now()); err != nil {
		t.Fatalf("close e3: %v", err)
	}
	_, found, err = store.NextPendingEntry(ctx, "s1", "e2")
	if err != nil {
		t.Fatalf("next pending after close: %v", err)
	}
	if found {
		t.Fatal("expected no candidate besides the excluded entry")
	}
}

func TestNextPendingEntryNoneLeft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEntry(ctx, speakingEntry("e1", "s1", 0)); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	_, found, err := store.NextPendingEntry(ctx, "s1", "")
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if found {
		t.Fatal("expected no pending entry")
	}
}

func TestCloseEntryStampsTerminalStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEntry(ctx, speakingEntry("e1", "s1", 0)); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	endedAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.CloseEntry(ctx, "e1", turn.StatusDone, endedAt); err != nil {
		t.Fatalf("close entry: %v", err)
	}

	entry, err := store.GetEntry(ctx, "e1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != turn.StatusDone {
		t.Fatalf("status = %q, want done", entry.Status)
	}
	if entry.EndedAt == nil || !entry.EndedAt.Equal(endedAt) {
		t.Fatalf("ended_at = %v, want %v", entry.EndedAt, endedAt)
	}
}

func TestCloseEntryRejectsNonTerminalStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEntry(ctx, speakingEntry("e1", "s1", 0)); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := store.CloseEntry(ctx, "e1", turn.StatusPending, time.Now()); err == nil {
		t.Fatal("expected non-terminal status rejection")
	}
}

func TestCloseEntryNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.CloseEntry(context.Background(), "missing", turn.StatusSkipped, time.Now())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPromoteEntryStampsSpeaking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEntry(ctx, pendingEntry("e1", "s1", 0)); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	startedAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.PromoteEntry(ctx, "e1", startedAt); err != nil {
		t.Fatalf("promote entry: %v", err)
	}

	entry, err := store.GetEntry(ctx, "e1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != turn.StatusSpeaking {
		t.Fatalf("status = %q, want speaking", entry.Status)
	}
	if entry.StartedAt == nil || !entry.StartedAt.Equal(startedAt) {
		t.Fatalf("started_at = %v, want %v", entry.StartedAt, startedAt)
	}
}

func TestPromoteEntryNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.PromoteEntry(context.Background(), "missing", time.Now())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
