package dto

import (
	"encoding/json"
	"time"
)

// CreateSessionRequest represents a request to create a session
type CreateSessionRequest struct {
	// SessionID is optional; the engine generates one when empty.
	SessionID    string            `json:"session_id,omitempty"`
	Participants []string          `json:"participants" binding:"required"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// VariantInfo represents the variant snapshot assigned to a session
type VariantInfo struct {
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ParticipantInfo represents one roster entry of a session
type ParticipantInfo struct {
	ID       string    `json:"id"`
	LastSeen time.Time `json:"last_seen"`
}

// SessionResponse represents a session as returned by the API
type SessionResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Participants []ParticipantInfo `json:"participants"`
	Variant      VariantInfo       `json:"variant"`

	// TurnHolder is the participant whose turn it is. Empty when the
	// session does not enforce turn order or is no longer live.
	TurnHolder   string `json:"turn_holder,omitempty"`
	StateVersion int64  `json:"state_version"`
	Moves        int    `json:"moves"`

	CreatedAt  time.Time  `json:"created_at"`
	LastMoveAt time.Time  `json:"last_move_at"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	// Board carries the shared state document on single-session reads.
	Board json.RawMessage `json:"board,omitempty"`

	// Existing is true when creation returned an already-live session
	// under the returnExisting duplicate policy.
	Existing bool `json:"existing,omitempty"`
}
