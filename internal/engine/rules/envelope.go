package rules

import (
	"encoding/json"
	"fmt"
)

// Envelope is the shared state document of one session. It is stored as
// a single JSON value in the state store and evolves only through
// compare-and-swap commits.
type Envelope struct {
	// Turn is the rotation pointer. The participant at index
	// turn % len(participants) holds the turn.
	Turn int `json:"turn"`
	// Moves counts accepted moves.
	Moves int `json:"moves"`
	// Board holds the latest payload per key.
	Board map[string]json.RawMessage `json:"board"`
}

// NewEnvelope returns the version-zero state of a fresh session.
func NewEnvelope() *Envelope {
	return &Envelope{Board: make(map[string]json.RawMessage)}
}

// Decode parses an envelope from its stored JSON form.
func Decode(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("failed to decode state envelope: %w", err)
	}
	if e.Board == nil {
		e.Board = make(map[string]json.RawMessage)
	}
	return &e, nil
}

// Encode renders the envelope to its stored JSON form.
func (e *Envelope) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state envelope: %w", err)
	}
	return raw, nil
}

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	out := &Envelope{
		Turn:  e.Turn,
		Moves: e.Moves,
		Board: make(map[string]json.RawMessage, len(e.Board)),
	}
	for k, v := range e.Board {
		out.Board[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Delta describes the change an accepted move applies to the envelope.
type Delta struct {
	// Board entries are merged into the envelope's board, replacing
	// existing keys.
	Board   map[string]json.RawMessage
	Summary string
}

// Apply merges a delta into a copy of the envelope. The turn pointer
// advances on every accepted move, whether or not turn order was
// enforced for it.
func Apply(e *Envelope, d *Delta) *Envelope {
	out := e.Clone()
	for k, v := range d.Board {
		out.Board[k] = append(json.RawMessage(nil), v...)
	}
	out.Turn++
	out.Moves++
	return out
}
