package rules

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/engine/session"
)

func testSession(params string) *session.Session {
	return &session.Session{
		ID:           "sess-1",
		Participants: session.NewRoster([]string{"alice", "bob"}, time.Time{}),
		Status:       cnst.StatusActive,
		Variant: session.VariantSnapshot{
			ID:     "duel-v1",
			Params: json.RawMessage(params),
		},
	}
}

func testInput(params string) Input {
	return Input{
		Session: testSession(params),
		State:   NewEnvelope(),
		Move: session.Move{
			SessionID:      "sess-1",
			ParticipantID:  "alice",
			IdempotencyKey: "key-1",
			Payload:        json.RawMessage(`{"action":"scout"}`),
		},
	}
}

func TestValidate_SessionNotActive(t *testing.T) {
	in := testInput(`{}`)
	in.Session.Status = cnst.StatusExpired
	res := Validate(in)
	assert.False(t, res.Accepted)
	assert.Equal(t, cnst.ReasonSessionNotActive, res.Reason)
	assert.Nil(t, res.Delta)

	in.Session.Status = cnst.StatusArchived
	assert.Equal(t, cnst.ReasonSessionNotActive, Validate(in).Reason)

	in.Session = nil
	assert.Equal(t, cnst.ReasonSessionNotActive, Validate(in).Reason)
}

func TestValidate_AwaitingTurnIsLive(t *testing.T) {
	in := testInput(`{}`)
	in.Session.Status = cnst.StatusAwaitingTurn
	res := Validate(in)
	assert.True(t, res.Accepted)
}

func TestValidate_NotParticipant(t *testing.T) {
	in := testInput(`{}`)
	in.Move.ParticipantID = "mallory"
	res := Validate(in)
	assert.False(t, res.Accepted)
	assert.Equal(t, cnst.ReasonNotParticipant, res.Reason)
}

func TestValidate_DuplicateIdempotencyKey(t *testing.T) {
	in := testInput(`{}`)
	in.KeyConsumedByOther = true
	res := Validate(in)
	assert.False(t, res.Accepted)
	assert.Equal(t, cnst.ReasonDuplicateIdempotencyKey, res.Reason)
}

func TestValidate_OutOfTurn(t *testing.T) {
	in := testInput(`{}`)
	in.EnforceTurnOrder = true
	in.Move.ParticipantID = "bob" // turn 0 belongs to alice
	res := Validate(in)
	assert.False(t, res.Accepted)
	assert.Equal(t, cnst.ReasonOutOfTurn, res.Reason)

	in.Move.ParticipantID = "alice"
	assert.True(t, Validate(in).Accepted)

	// turn 1 rotates to bob
	in.State.Turn = 1
	in.Move.ParticipantID = "bob"
	assert.True(t, Validate(in).Accepted)
	in.Move.ParticipantID = "alice"
	assert.Equal(t, cnst.ReasonOutOfTurn, Validate(in).Reason)
}

func TestValidate_TurnOrderDisabled(t *testing.T) {
	in := testInput(`{}`)
	in.EnforceTurnOrder = false
	in.Move.ParticipantID = "bob"
	assert.True(t, Validate(in).Accepted)
}

func TestValidate_VariantOverridesTurnOrder(t *testing.T) {
	// variant disables the globally enabled check
	in := testInput(`{"enforce_turn_order":false}`)
	in.EnforceTurnOrder = true
	in.Move.ParticipantID = "bob"
	assert.True(t, Validate(in).Accepted)

	// variant enables the globally disabled check
	in = testInput(`{"enforce_turn_order":true}`)
	in.EnforceTurnOrder = false
	in.Move.ParticipantID = "bob"
	assert.Equal(t, cnst.ReasonOutOfTurn, Validate(in).Reason)
}

func TestValidate_InvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		payload string
	}{
		{"empty", `{}`, ``},
		{"not json", `{}`, `{broken`},
		{"array", `{}`, `[1,2]`},
		{"string", `{}`, `"scout"`},
		{"over size limit", `{"max_payload_bytes":10}`, `{"action":"scout","note":"padding"}`},
		{"missing required field", `{"required_fields":["action","target"]}`, `{"action":"scout"}`},
		{"action not allowed", `{"allowed_actions":["wait","run"]}`, `{"action":"scout"}`},
		{"action field absent", `{"allowed_actions":["wait"]}`, `{"note":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(tt.params)
			in.Move.Payload = json.RawMessage(tt.payload)
			res := Validate(in)
			assert.False(t, res.Accepted)
			assert.Equal(t, cnst.ReasonInvalidPayload, res.Reason)
			assert.Nil(t, res.Delta)
		})
	}
}

func TestValidate_EmptyIdempotencyKey(t *testing.T) {
	in := testInput(`{}`)
	in.Move.IdempotencyKey = ""
	res := Validate(in)
	assert.False(t, res.Accepted)
	assert.Equal(t, cnst.ReasonInvalidPayload, res.Reason)
}

func TestValidate_PayloadRulesSatisfied(t *testing.T) {
	in := testInput(`{"allowed_actions":["scout","wait"],"required_fields":["action"],"max_payload_bytes":64}`)
	res := Validate(in)
	require.True(t, res.Accepted)
	assert.Empty(t, res.Reason)
}

func TestValidate_RejectionPrecedence(t *testing.T) {
	// an expired session wins over every later check
	in := testInput(`{}`)
	in.Session.Status = cnst.StatusExpired
	in.Move.ParticipantID = "mallory"
	in.KeyConsumedByOther = true
	in.Move.Payload = json.RawMessage(`broken`)
	assert.Equal(t, cnst.ReasonSessionNotActive, Validate(in).Reason)

	// membership beats the key collision
	in.Session.Status = cnst.StatusActive
	assert.Equal(t, cnst.ReasonNotParticipant, Validate(in).Reason)

	// key collision beats turn order and payload checks
	in.Move.ParticipantID = "bob"
	in.EnforceTurnOrder = true
	assert.Equal(t, cnst.ReasonDuplicateIdempotencyKey, Validate(in).Reason)

	// turn order beats payload checks
	in.KeyConsumedByOther = false
	assert.Equal(t, cnst.ReasonOutOfTurn, Validate(in).Reason)
}

func TestValidate_AcceptedDelta(t *testing.T) {
	in := testInput(`{}`)
	res := Validate(in)
	require.True(t, res.Accepted)
	require.NotNil(t, res.Delta)
	assert.JSONEq(t, `{"action":"scout"}`, string(res.Delta.Board["alice"]))
	assert.Equal(t, "alice played scout", res.Delta.Summary)
}

func TestValidate_SetObjectWritesBoardFields(t *testing.T) {
	in := testInput(`{}`)
	in.Move.Payload = json.RawMessage(`{"action":"scout","set":{"camp":{"x":1},"supplies":7}}`)
	res := Validate(in)
	require.True(t, res.Accepted)
	require.NotNil(t, res.Delta)
	assert.JSONEq(t, `{"x":1}`, string(res.Delta.Board["camp"]))
	assert.JSONEq(t, `7`, string(res.Delta.Board["supplies"]))
	assert.NotContains(t, res.Delta.Board, "alice")
}

func TestValidate_SummaryWithoutAction(t *testing.T) {
	in := testInput(`{}`)
	in.Move.Payload = json.RawMessage(`{"note":"hello"}`)
	res := Validate(in)
	require.True(t, res.Accepted)
	assert.Equal(t, "alice moved", res.Delta.Summary)
}

func TestValidate_DeltaDoesNotAliasPayload(t *testing.T) {
	payload := []byte(`{"action":"scout"}`)
	in := testInput(`{}`)
	in.Move.Payload = payload
	res := Validate(in)
	require.True(t, res.Accepted)

	payload[2] = 'X'
	assert.JSONEq(t, `{"action":"scout"}`, string(res.Delta.Board["alice"]))
}

func TestValidate_Deterministic(t *testing.T) {
	in := testInput(`{"enforce_turn_order":true}`)
	first := Validate(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Validate(in))
	}
}
