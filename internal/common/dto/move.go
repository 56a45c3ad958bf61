package dto

import (
	"encoding/json"
	"time"
)

// SubmitMoveRequest represents a move submission
type SubmitMoveRequest struct {
	ParticipantID  string          `json:"participant_id" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
	Payload        json.RawMessage `json:"payload" binding:"required"`
}

// MoveResponse represents the outcome of a move submission.
// Rejections are part of the normal protocol and share this shape.
type MoveResponse struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	SessionID string `json:"session_id"`

	StateVersion int64  `json:"state_version"`
	Turn         int    `json:"turn"`
	TurnHolder   string `json:"turn_holder,omitempty"`
	Summary      string `json:"summary,omitempty"`

	// Replayed is true when the outcome was served from the
	// idempotency ledger instead of committing a new move.
	Replayed bool `json:"replayed,omitempty"`
}

// MoveRecordItem represents one committed move in the session history
type MoveRecordItem struct {
	Seq            int64           `json:"seq"`
	ParticipantID  string          `json:"participant_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	StateVersion   int64           `json:"state_version"`
	Turn           int             `json:"turn"`
	Summary        string          `json:"summary,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// ListMovesResponse represents the committed move history of a session
type ListMovesResponse struct {
	SessionID string           `json:"session_id"`
	Moves     []MoveRecordItem `json:"moves"`
}

// SweepResponse represents the result of a lifecycle sweep pass
type SweepResponse struct {
	Expired  int `json:"expired"`
	Archived int `json:"archived"`
	Pruned   int `json:"pruned"`
}
