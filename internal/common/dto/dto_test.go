package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveResponse_WireFormat(t *testing.T) {
	t.Run("rejection keeps reason and drops optional fields", func(t *testing.T) {
		resp := MoveResponse{
			Accepted:     false,
			Reason:       "OutOfTurn",
			SessionID:    "s-1",
			StateVersion: 4,
			Turn:         2,
		}
		out, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"accepted": false,
			"reason": "OutOfTurn",
			"session_id": "s-1",
			"state_version": 4,
			"turn": 2
		}`, string(out))
	})

	t.Run("replayed acceptance", func(t *testing.T) {
		resp := MoveResponse{
			Accepted:     true,
			SessionID:    "s-1",
			StateVersion: 5,
			Turn:         3,
			TurnHolder:   "p2",
			Summary:      "p1 moved north",
			Replayed:     true,
		}
		out, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"replayed":true`)
		assert.NotContains(t, string(out), `"reason"`)
	})
}

func TestSessionResponse_WireFormat(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := SessionResponse{
		ID:     "s-1",
		Status: "AWAITING_TURN",
		Participants: []ParticipantInfo{
			{ID: "p1", LastSeen: created},
			{ID: "p2", LastSeen: created},
		},
		Variant:      VariantInfo{ID: "strict", Params: json.RawMessage(`{"enforce_turn_order":true}`)},
		TurnHolder:   "p2",
		StateVersion: 3,
		Moves:        3,
		CreatedAt:    created,
		LastMoveAt:   created,
	}
	out, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "AWAITING_TURN", decoded["status"])
	assert.Equal(t, "p2", decoded["turn_holder"])
	assert.NotContains(t, decoded, "archived_at")
	assert.NotContains(t, decoded, "board")

	participants, ok := decoded["participants"].([]any)
	require.True(t, ok)
	require.Len(t, participants, 2)
	first, ok := participants[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p1", first["id"])
}

func TestCreateSessionRequest_OptionalSessionID(t *testing.T) {
	var req CreateSessionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"participants":["p1"]}`), &req))
	assert.Empty(t, req.SessionID)

	require.NoError(t, json.Unmarshal([]byte(`{"session_id":"dungeon-42","participants":["p1"]}`), &req))
	assert.Equal(t, "dungeon-42", req.SessionID)
}

func TestWorldDTO_WireFormat(t *testing.T) {
	var req LeaveNoteRequest
	err := json.Unmarshal([]byte(`{"area_id":"crypt","note_location_id":"door_3","word":"danger"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "crypt", req.AreaID)
	assert.Equal(t, "door_3", req.NoteLocationID)
	assert.Equal(t, "danger", req.Word)

	out, err := json.Marshal(ElevatedDreadAreasResponse{
		ElevatedAreas: []ElevatedDreadArea{{AreaID: "crypt", DreadLevel: 2}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"elevated_areas":[{"area_id":"crypt","dread_level":2}]}`, string(out))
}
