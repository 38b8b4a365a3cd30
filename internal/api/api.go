// Package api exposes the turns service over HTTP JSON.
//
// Routes:
//
//	POST /v1/turns/advance  advance the speaking turn of a session
//	GET  /healthz           liveness probe
//
// Mutating routes require the shared deployment secret in the
// X-Roundtable-Secret header when one is configured.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/louisbranch/roundtable/internal/advancer"
	"github.com/louisbranch/roundtable/internal/api/httpx"
	apperrors "github.com/louisbranch/roundtable/internal/errors"
	"github.com/louisbranch/roundtable/internal/storage"
	"github.com/louisbranch/roundtable/internal/turn"
)

// SecretHeader carries the shared deployment secret.
const SecretHeader = "X-Roundtable-Secret"

const maxBodyBytes = 1 << 20

// Handler serves the turns HTTP API.
type Handler struct {
	advancer *advancer.Advancer
	secret   string
}

// New builds the HTTP handler for the turns service. An empty secret
// disables the header check entirely.
func New(adv *advancer.Advancer, secret string) (http.Handler, error) {
	if adv == nil {
		return nil, fmt.Errorf("advancer is required")
	}
	h := &Handler{advancer: adv, secret: secret}

	mux := http.NewServeMux()
	mux.Handle("/healthz", httpx.Chain(
		http.HandlerFunc(h.handleHealth),
		httpx.RequireMethod(http.MethodGet),
	))
	mux.Handle("/v1/turns/advance", httpx.Chain(
		http.HandlerFunc(h.handleAdvance),
		httpx.RequireMethod(http.MethodPost),
		h.requireSecret(),
	))
	return httpx.Chain(mux, httpx.RecoverPanic(), httpx.RequestID()), nil
}

// requireSecret rejects requests whose shared-secret header does not match.
// The comparison is constant time. A nil middleware is returned when no
// secret is configured.
func (h *Handler) requireSecret() httpx.Middleware {
	if h.secret == "" {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
				httpx.WriteError(w, apperrors.New(apperrors.CodeSecretMismatch,
					"shared secret is missing or does not match"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// advanceRequest is the wire shape of an advancement attempt.
type advanceRequest struct {
	SessionID              string   `json:"session_id"`
	ExpectedCurrentEntryID string   `json:"expected_current_entry_id"`
	Action                 string   `json:"action"`
	TopLabel               string   `json:"top_label,omitempty"`
	TopTags                []string `json:"top_tags,omitempty"`
}

// sessionStatePayload mirrors the post-advancement session pointer.
// CurrentEntryID stays in the payload when exhausted so callers can
// distinguish "no current entry" from a missing field.
type sessionStatePayload struct {
	SessionID      string    `json:"session_id"`
	CurrentEntryID string    `json:"current_entry_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// entryPayload mirrors one queue entry on the wire.
type entryPayload struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	OrderIndex int        `json:"order_index"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// advanceResponse is the wire shape of a successful advancement. NextEntry
// serializes as explicit null when the queue is exhausted.
type advanceResponse struct {
	OK           bool                `json:"ok"`
	SessionState sessionStatePayload `json:"session_state"`
	NextEntry    *entryPayload       `json:"next_entry"`
}

func toEntryPayload(entry *storage.SessionEntry) *entryPayload {
	if entry == nil {
		return nil
	}
	return &entryPayload{
		ID:         entry.ID,
		SessionID:  entry.SessionID,
		OrderIndex: entry.OrderIndex,
		Status:     string(entry.Status),
		StartedAt:  entry.StartedAt,
		EndedAt:    entry.EndedAt,
	}
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var body advanceRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeInvalidBody,
			"request body must be a JSON advance request"))
		return
	}

	action, err := turn.ParseAction(body.Action)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	result, err := h.advancer.Advance(httpx.RequestContext(r), advancer.Request{
		SessionID:              body.SessionID,
		ExpectedCurrentEntryID: body.ExpectedCurrentEntryID,
		Action:                 action,
		TopLabel:               body.TopLabel,
		TopTags:                body.TopTags,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, advanceResponse{
		OK: true,
		SessionState: sessionStatePayload{
			SessionID:      result.SessionState.SessionID,
			CurrentEntryID: result.SessionState.CurrentEntryID,
			UpdatedAt:      result.SessionState.UpdatedAt,
		},
		NextEntry: toEntryPayload(result.NextEntry),
	})
}
