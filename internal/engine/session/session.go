package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ifuryst/lol"

	"github.com/gloamlab/gloam/internal/common/cnst"
)

// VariantSnapshot is the immutable copy of the rule variant taken when a
// session is created. Later changes to variant configuration never touch
// sessions already assigned.
type VariantSnapshot struct {
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params"`
}

// Participant is one member of a session's ordered roster. Index is the
// position in join order and drives the turn rotation.
type Participant struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	LastSeen time.Time `json:"last_seen"`
}

// NewRoster builds the initial roster over an ordered participant list.
func NewRoster(participants []string, now time.Time) []Participant {
	roster := make([]Participant, len(participants))
	for i, p := range participants {
		roster[i] = Participant{ID: p, Index: i, LastSeen: now}
	}
	return roster
}

// Session is the durable record of one coordination session.
type Session struct {
	ID           string             `json:"id"`
	Participants []Participant      `json:"participants"`
	Status       cnst.SessionStatus `json:"status"`
	Variant      VariantSnapshot    `json:"variant"`

	// Fingerprint identifies the participant set for duplicate
	// detection among live sessions.
	Fingerprint string `json:"fingerprint"`

	// StateVersion mirrors the version of the last committed state
	// document. It is bookkeeping only; the state store remains the
	// single source of truth for the current version.
	StateVersion int64 `json:"state_version"`
	Moves        int   `json:"moves"`

	CreatedAt  time.Time  `json:"created_at"`
	LastMoveAt time.Time  `json:"last_move_at"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	// FinalState holds the state document snapshot taken when the
	// session is archived and its live state entry is deleted.
	FinalState []byte `json:"final_state,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// NormalizeParticipants deduplicates the participant list preserving
// first-occurrence order. The order defines the turn rotation.
func NormalizeParticipants(participants []string) ([]string, error) {
	trimmed := make([]string, 0, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("participant id must not be empty")
		}
		trimmed = append(trimmed, p)
	}
	out := lol.UniqSlice(trimmed)
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one participant is required")
	}
	return out, nil
}

// Fingerprint computes the duplicate-detection fingerprint for a
// participant set. Participant order does not matter; the variant takes
// no part, so sessions assigned different variants still collide.
func Fingerprint(participants []string) string {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParticipantIDs returns the ordered identity list.
func (s *Session) ParticipantIDs() []string {
	ids := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.ID
	}
	return ids
}

// IsParticipant reports whether id belongs to the session.
func (s *Session) IsParticipant(id string) bool {
	for _, p := range s.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// TurnHolder returns the participant holding the given turn pointer.
func (s *Session) TurnHolder(turn int) string {
	if len(s.Participants) == 0 || turn < 0 {
		return ""
	}
	return s.Participants[turn%len(s.Participants)].ID
}

// Touch records activity by a participant.
func (s *Session) Touch(participantID string, now time.Time) {
	s.LastMoveAt = now
	for i := range s.Participants {
		if s.Participants[i].ID == participantID {
			s.Participants[i].LastSeen = now
			return
		}
	}
}

// IsLive reports whether the session can still accept moves.
func (s *Session) IsLive() bool {
	return s.Status.IsLive()
}

// Clock supplies the current time.
type Clock func() time.Time

// IDGen mints session IDs when the caller does not supply one.
type IDGen func() string

// Factory builds sessions with an injected clock and ID source.
type Factory struct {
	clock Clock
	newID IDGen
}

// NewFactory creates a session factory. Nil arguments fall back to the
// wall clock and random UUIDs.
func NewFactory(clock Clock, newID IDGen) *Factory {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Factory{clock: clock, newID: newID}
}

// Now returns the factory's current time.
func (f *Factory) Now() time.Time {
	return f.clock()
}

// NewID mints a session id. Variant assignment hashes the id, so
// callers mint it before building the session.
func (f *Factory) NewID() string {
	return f.newID()
}

// New builds an ACTIVE session over a normalized participant list and an
// assigned variant snapshot. An empty id gets a generated one.
func (f *Factory) New(id string, participants []string, variant VariantSnapshot) *Session {
	if id == "" {
		id = f.newID()
	}
	now := f.clock()
	return &Session{
		ID:           id,
		Participants: NewRoster(participants, now),
		Status:       cnst.StatusActive,
		Variant:      variant,
		Fingerprint:  Fingerprint(participants),
		CreatedAt:    now,
		LastMoveAt:   now,
	}
}
