package session

import (
	"encoding/json"
	"time"
)

// Move is one move submission addressed to a session. The idempotency
// key scopes to the session: resubmitting the same key replays the
// recorded outcome instead of mutating state again.
type Move struct {
	SessionID      string          `json:"session_id"`
	ParticipantID  string          `json:"participant_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}
