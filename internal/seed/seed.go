// Package seed initializes a session's turn queue with a shuffled speaking
// order.
package seed

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/platform/id"
	"github.com/louisbranch/roundtable/internal/storage"
	"github.com/louisbranch/roundtable/internal/storage/sqlite"
	"github.com/louisbranch/roundtable/internal/turn"
)

// Config holds queue initialization settings.
type Config struct {
	// DBPath locates the SQLite database file.
	DBPath string
	// SessionID identifies the session to initialize; generated when empty.
	SessionID string
	// Entries is the number of turn slots to create.
	Entries int
	// Seed fixes the shuffle for reproducibility; 0 means random.
	Seed int64
}

// Result reports what initialization created.
type Result struct {
	SessionID string
	// EntryIDs are in speaking order; the first one starts speaking.
	EntryIDs []string
}

// Initialize creates the entries and state row for a new session. It refuses
// to touch a session that already has a state row.
func Initialize(ctx context.Context, store storage.Store, cfg Config) (Result, error) {
	if store == nil {
		return Result{}, fmt.Errorf("store is required")
	}
	if cfg.Entries <= 0 {
		return Result{}, fmt.Errorf("entry count must be positive, got %d", cfg.Entries)
	}
	sessionID := strings.TrimSpace(cfg.SessionID)
	if sessionID == "" {
		generated, err := id.NewID()
		if err != nil {
			return Result{}, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = generated
	}

	_, err := store.GetSessionState(ctx, sessionID)
	switch {
	case err == nil:
		return Result{}, fmt.Errorf("session %s is already initialized", sessionID)
	case stderrors.Is(err, storage.ErrNotFound):
	default:
		return Result{}, fmt.Errorf("check session state: %w", err)
	}

	seedValue := cfg.Seed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedValue))

	entryIDs := make([]string, cfg.Entries)
	for i := range entryIDs {
		entryID, err := id.NewID()
		if err != nil {
			return Result{}, fmt.Errorf("generate entry id: %w", err)
		}
		entryIDs[i] = entryID
	}
	rng.Shuffle(len(entryIDs), func(i, j int) {
		entryIDs[i], entryIDs[j] = entryIDs[j], entryIDs[i]
	})

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, entryID := range entryIDs {
		entry := storage.SessionEntry{
			ID:         entryID,
			SessionID:  sessionID,
			OrderIndex: i,
			Status:     turn.StatusPending,
		}
		if i == 0 {
			entry.Status = turn.StatusSpeaking
			entry.StartedAt = &now
		}
		if err := store.PutEntry(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("create entry %d: %w", i, err)
		}
	}

	if err := store.PutSessionState(ctx, storage.SessionState{
		SessionID:      sessionID,
		CurrentEntryID: entryIDs[0],
		UpdatedAt:      now,
	}); err != nil {
		return Result{}, fmt.Errorf("create session state: %w", err)
	}

	return Result{SessionID: sessionID, EntryIDs: entryIDs}, nil
}

// Run opens the store, initializes a session, and prints the created queue.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open turns sqlite store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	result, err := Initialize(ctx, store, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "session %s initialized with %d entries\n", result.SessionID, len(result.EntryIDs))
	for i, entryID := range result.EntryIDs {
		marker := "pending"
		if i == 0 {
			marker = "speaking"
		}
		fmt.Fprintf(out, "  %2d %s %s\n", i, entryID, marker)
	}
	return nil
}
