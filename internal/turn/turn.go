// Package turn defines the domain vocabulary for round-robin speaking turns.
//
// A session owns an ordered set of entries; at most one entry is speaking at
// a time. Advancing the turn closes the speaking entry with a terminal status
// and promotes the next pending entry by ascending order index.
package turn

import (
	"strings"

	"github.com/louisbranch/roundtable/internal/errors"
)

// Status is the lifecycle state of a session entry.
type Status string

const (
	// StatusPending marks an entry waiting for its turn.
	StatusPending Status = "pending"
	// StatusSpeaking marks the single active entry of a session.
	StatusSpeaking Status = "speaking"
	// StatusDone marks an entry whose turn completed normally.
	StatusDone Status = "done"
	// StatusSkipped marks an entry whose turn was passed over.
	StatusSkipped Status = "skipped"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSpeaking, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether an entry can never leave this status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusSkipped
}

// Action is the caller-requested outcome for the current turn.
type Action string

const (
	// ActionDone closes the current turn as completed.
	ActionDone Action = "done"
	// ActionSkipped closes the current turn as passed over.
	ActionSkipped Action = "skipped"
)

// ParseAction validates a wire action value.
func ParseAction(value string) (Action, error) {
	switch Action(strings.TrimSpace(value)) {
	case ActionDone:
		return ActionDone, nil
	case ActionSkipped:
		return ActionSkipped, nil
	}
	return "", errors.New(errors.CodeInvalidAction, "action must be done or skipped")
}

// TerminalStatus maps the action to the entry status it produces.
func (a Action) TerminalStatus() Status {
	if a == ActionDone {
		return StatusDone
	}
	return StatusSkipped
}

// AnonymousActor is the generic identity recorded for advancement audit
// records; individual-user login is not part of this system's trust model.
const AnonymousActor = "anonymous"

// MaxKeywordTags caps keyword tally increments per advancement. Additional
// tags are silently dropped, a truncation policy rather than an error.
const MaxKeywordTags = 3

// NormalizeTags returns the first MaxKeywordTags distinct, non-empty tags.
// Empty and whitespace-only tags are skipped without error.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, MaxKeywordTags)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
		if len(normalized) == MaxKeywordTags {
			break
		}
	}
	return normalized
}
