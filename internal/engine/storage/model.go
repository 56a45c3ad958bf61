package storage

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/engine/session"
)

// SessionRecord represents the database model for a session record
type SessionRecord struct {
	ID            string     `gorm:"column:id; type:varchar(64); primaryKey"`
	Status        string     `gorm:"column:status; type:varchar(16); index"`
	Fingerprint   string     `gorm:"column:fingerprint; type:varchar(64); index"`
	VariantID     string     `gorm:"column:variant_id; type:varchar(64)"`
	VariantParams string     `gorm:"type:text; column:variant_params"`
	Participants  string     `gorm:"type:text; column:participants"`
	StateVersion  int64      `gorm:"column:state_version"`
	Moves         int        `gorm:"column:moves"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	LastMoveAt    time.Time  `gorm:"column:last_move_at; index"`
	ExpiredAt     *time.Time `gorm:"column:expired_at"`
	ArchivedAt    *time.Time `gorm:"column:archived_at"`
	FinalState    string     `gorm:"type:text; column:final_state"`
	Metadata      string     `gorm:"type:text; column:metadata"`
}

// ToSession converts the database model to a session
func (r *SessionRecord) ToSession() (*session.Session, error) {
	s := &session.Session{
		ID:     r.ID,
		Status: cnst.SessionStatus(r.Status),
		Variant: session.VariantSnapshot{
			ID: r.VariantID,
		},
		Fingerprint:  r.Fingerprint,
		StateVersion: r.StateVersion,
		Moves:        r.Moves,
		CreatedAt:    r.CreatedAt,
		LastMoveAt:   r.LastMoveAt,
		ExpiredAt:    r.ExpiredAt,
		ArchivedAt:   r.ArchivedAt,
	}

	if len(r.VariantParams) > 0 {
		s.Variant.Params = json.RawMessage(r.VariantParams)
	}
	if len(r.Participants) > 0 {
		if err := json.Unmarshal([]byte(r.Participants), &s.Participants); err != nil {
			return nil, err
		}
	}
	if len(r.FinalState) > 0 {
		s.FinalState = []byte(r.FinalState)
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal([]byte(r.Metadata), &s.Metadata); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FromSession converts a session to the database model
func FromSession(s *session.Session) (*SessionRecord, error) {
	participants, err := json.Marshal(s.Participants)
	if err != nil {
		return nil, err
	}

	record := &SessionRecord{
		ID:            s.ID,
		Status:        string(s.Status),
		Fingerprint:   s.Fingerprint,
		VariantID:     s.Variant.ID,
		VariantParams: string(s.Variant.Params),
		Participants:  string(participants),
		StateVersion:  s.StateVersion,
		Moves:         s.Moves,
		CreatedAt:     s.CreatedAt,
		LastMoveAt:    s.LastMoveAt,
		ExpiredAt:     s.ExpiredAt,
		ArchivedAt:    s.ArchivedAt,
		FinalState:    string(s.FinalState),
	}

	if s.Metadata != nil {
		metadata, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, err
		}
		record.Metadata = string(metadata)
	}

	return record, nil
}

// BeforeCreate is a GORM hook that sets timestamps
func (r *SessionRecord) BeforeCreate(_ *gorm.DB) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.LastMoveAt.IsZero() {
		r.LastMoveAt = now
	}
	return nil
}

// MoveRecord represents one row of the move ledger. The unique index on
// (session_id, idempotency_key) enforces at-most-once acceptance.
type MoveRecord struct {
	Seq            int64     `gorm:"primaryKey;autoIncrement"`
	SessionID      string    `gorm:"column:session_id; type:varchar(64); uniqueIndex:idx_session_idem,priority:1"`
	ParticipantID  string    `gorm:"column:participant_id; type:varchar(64)"`
	IdempotencyKey string    `gorm:"column:idempotency_key; type:varchar(128); uniqueIndex:idx_session_idem,priority:2"`
	Payload        string    `gorm:"type:text; column:payload"`
	StateVersion   int64     `gorm:"column:state_version"`
	Turn           int       `gorm:"column:turn"`
	Summary        string    `gorm:"column:summary; type:varchar(255)"`
	SubmittedAt    time.Time `gorm:"column:submitted_at; index"`
}

// BeforeCreate is a GORM hook that sets the submission timestamp
func (m *MoveRecord) BeforeCreate(_ *gorm.DB) error {
	if m.SubmittedAt.IsZero() {
		m.SubmittedAt = time.Now()
	}
	return nil
}
