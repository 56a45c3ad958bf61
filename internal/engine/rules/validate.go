package rules

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/engine/session"
)

// Input carries everything validation may read. Validate is a pure
// function of this input; it performs no I/O and never mutates it.
type Input struct {
	Session *session.Session
	State   *Envelope
	Move    session.Move

	// EnforceTurnOrder is the engine-wide default. The variant param
	// enforce_turn_order overrides it per session.
	EnforceTurnOrder bool

	// KeyConsumedByOther is true when the move's idempotency key was
	// already consumed by a different participant in this session.
	// Same-participant replays never reach validation.
	KeyConsumedByOther bool
}

// Result is the outcome of validation. Exactly one of Accepted or
// Reason is meaningful; an accepted result carries the delta to commit.
type Result struct {
	Accepted bool
	Reason   cnst.RejectionReason
	Delta    *Delta
}

func rejected(reason cnst.RejectionReason) Result {
	return Result{Reason: reason}
}

// Validate checks a move against the session, its variant rules and the
// current state. Checks run in a fixed order and the first failure wins:
// session liveness, membership, key collision, turn order, payload.
func Validate(in Input) Result {
	s := in.Session

	if s == nil || !s.Status.IsLive() {
		return rejected(cnst.ReasonSessionNotActive)
	}

	if !s.IsParticipant(in.Move.ParticipantID) {
		return rejected(cnst.ReasonNotParticipant)
	}

	if in.KeyConsumedByOther {
		return rejected(cnst.ReasonDuplicateIdempotencyKey)
	}

	if enforceTurnOrder(in) {
		holder := s.TurnHolder(in.State.Turn)
		if holder != in.Move.ParticipantID {
			return rejected(cnst.ReasonOutOfTurn)
		}
	}

	if !validPayload(in) {
		return rejected(cnst.ReasonInvalidPayload)
	}

	return Result{
		Accepted: true,
		Delta: &Delta{
			Board:   boardWrites(in.Move),
			Summary: summarize(in.Move),
		},
	}
}

// boardWrites derives the board delta from the payload. A "set" object
// writes its fields individually; without one, the payload itself is
// recorded under the participant's key.
func boardWrites(m session.Move) map[string]json.RawMessage {
	if set := gjson.GetBytes(m.Payload, "set"); set.IsObject() {
		writes := make(map[string]json.RawMessage)
		set.ForEach(func(key, value gjson.Result) bool {
			writes[key.String()] = json.RawMessage(value.Raw)
			return true
		})
		return writes
	}
	return map[string]json.RawMessage{
		m.ParticipantID: append(json.RawMessage(nil), m.Payload...),
	}
}

// TurnOrderEnforced resolves the effective turn-order flag for a
// session: the variant param enforce_turn_order wins over the
// engine-wide default when present.
func TurnOrderEnforced(s *session.Session, engineDefault bool) bool {
	if res := gjson.GetBytes(s.Variant.Params, "enforce_turn_order"); res.Exists() {
		return res.Bool()
	}
	return engineDefault
}

func enforceTurnOrder(in Input) bool {
	return TurnOrderEnforced(in.Session, in.EnforceTurnOrder)
}

func validPayload(in Input) bool {
	// A move without an idempotency key cannot be replayed safely.
	if in.Move.IdempotencyKey == "" {
		return false
	}
	payload := in.Move.Payload
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return false
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return false
	}

	params := in.Session.Variant.Params

	if limit := gjson.GetBytes(params, "max_payload_bytes"); limit.Exists() {
		if int64(len(payload)) > limit.Int() {
			return false
		}
	}

	if required := gjson.GetBytes(params, "required_fields"); required.IsArray() {
		for _, f := range required.Array() {
			if !doc.Get(f.String()).Exists() {
				return false
			}
		}
	}

	if allowed := gjson.GetBytes(params, "allowed_actions"); allowed.IsArray() {
		action := doc.Get("action")
		if !action.Exists() {
			return false
		}
		ok := false
		for _, a := range allowed.Array() {
			if a.String() == action.String() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}

func summarize(m session.Move) string {
	if action := gjson.GetBytes(m.Payload, "action"); action.Exists() && action.String() != "" {
		return fmt.Sprintf("%s played %s", m.ParticipantID, action.String())
	}
	return fmt.Sprintf("%s moved", m.ParticipantID)
}
