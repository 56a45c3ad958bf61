package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/dto"
	"github.com/gloamlab/gloam/internal/common/errorx"
	"github.com/gloamlab/gloam/internal/engine/coordinator"
	"github.com/gloamlab/gloam/internal/engine/lifecycle"
	"github.com/gloamlab/gloam/internal/engine/session"
)

// SessionHandler serves session creation, reads, move submission and the
// admin sweep trigger.
type SessionHandler struct {
	logger    *zap.Logger
	coord     *coordinator.Coordinator
	lifecycle *lifecycle.Manager
	errs      *errorx.ErrorHandler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(logger *zap.Logger, coord *coordinator.Coordinator, lc *lifecycle.Manager) *SessionHandler {
	return &SessionHandler{
		logger:    logger.Named("apiserver.session"),
		coord:     coord,
		lifecycle: lc,
		errs:      errorx.NewErrorHandler(logger),
	}
}

// HandleCreateSession creates a session from a participant roster
func (h *SessionHandler) HandleCreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.HandleError(c, errorx.ValidationError("body", "", err.Error()))
		return
	}

	sess, existing, err := h.lifecycle.CreateSession(c.Request.Context(), lifecycle.CreateInput{
		SessionID:    req.SessionID,
		Participants: req.Participants,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	resp, err := h.sessionView(c.Request.Context(), sess.ID)
	if err != nil {
		// The session exists; serve the record even if the state read
		// raced a sweep.
		resp = toSessionResponse(sess)
	}
	resp.Existing = existing

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// HandleGetSession serves one session with its live state
func (h *SessionHandler) HandleGetSession(c *gin.Context) {
	resp, err := h.sessionView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSubmitMove runs a move through the submission pipeline.
// Rejections are protocol results and come back 200 with accepted=false;
// only infrastructure failures map to error statuses.
func (h *SessionHandler) HandleSubmitMove(c *gin.Context) {
	var req dto.SubmitMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.HandleError(c, errorx.ValidationError("body", "", err.Error()))
		return
	}

	out, err := h.coord.SubmitMove(c.Request.Context(), session.Move{
		SessionID:      c.Param("id"),
		ParticipantID:  req.ParticipantID,
		IdempotencyKey: req.IdempotencyKey,
		Payload:        req.Payload,
	})
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.MoveResponse{
		Accepted:     out.Accepted,
		Reason:       string(out.Reason),
		SessionID:    out.SessionID,
		StateVersion: out.StateVersion,
		Turn:         out.Turn,
		TurnHolder:   out.TurnHolder,
		Summary:      out.Summary,
		Replayed:     out.Replayed,
	})
}

// HandleListMoves serves the committed move history, newest first
func (h *SessionHandler) HandleListMoves(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errs.HandleError(c, errorx.ValidationError("limit", raw, "must be an integer"))
			return
		}
		limit = parsed
	}

	sessionID := c.Param("id")
	moves, err := h.coord.ListMoves(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	items := make([]dto.MoveRecordItem, 0, len(moves))
	for _, rec := range moves {
		items = append(items, dto.MoveRecordItem{
			Seq:            rec.Seq,
			ParticipantID:  rec.ParticipantID,
			IdempotencyKey: rec.IdempotencyKey,
			StateVersion:   rec.StateVersion,
			Turn:           rec.Turn,
			Summary:        rec.Summary,
			Payload:        json.RawMessage(rec.Payload),
			SubmittedAt:    rec.SubmittedAt,
		})
	}
	c.JSON(http.StatusOK, &dto.ListMovesResponse{
		SessionID: sessionID,
		Moves:     items,
	})
}

// HandleSweep runs one lifecycle sweep pass and serves the report
func (h *SessionHandler) HandleSweep(c *gin.Context) {
	report, err := h.lifecycle.ExpireInactive(c.Request.Context())
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, &dto.SweepResponse{
		Expired:  report.Expired,
		Archived: report.Archived,
		Pruned:   int(report.Pruned),
	})
}

func (h *SessionHandler) sessionView(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, env, err := h.coord.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toSessionResponse(sess)
	if env != nil {
		resp.TurnHolder = h.coord.TurnHolder(sess, env.Turn)
		if board, err := json.Marshal(env.Board); err == nil {
			resp.Board = board
		}
	}
	return resp, nil
}

func toSessionResponse(sess *session.Session) *dto.SessionResponse {
	participants := make([]dto.ParticipantInfo, 0, len(sess.Participants))
	for _, p := range sess.Participants {
		participants = append(participants, dto.ParticipantInfo{
			ID:       p.ID,
			LastSeen: p.LastSeen,
		})
	}
	return &dto.SessionResponse{
		ID:           sess.ID,
		Status:       string(sess.Status),
		Participants: participants,
		Variant: dto.VariantInfo{
			ID:     sess.Variant.ID,
			Params: sess.Variant.Params,
		},
		StateVersion: sess.StateVersion,
		Moves:        sess.Moves,
		CreatedAt:    sess.CreatedAt,
		LastMoveAt:   sess.LastMoveAt,
		ExpiredAt:    sess.ExpiredAt,
		ArchivedAt:   sess.ArchivedAt,
	}
}
