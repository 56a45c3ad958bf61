package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/dto"
	"github.com/gloamlab/gloam/internal/common/errorx"
	"github.com/gloamlab/gloam/internal/world"
)

// WorldHandler serves the world telemetry routes: death reports, dread
// lookups and player notes.
type WorldHandler struct {
	logger *zap.Logger
	svc    *world.Service
	errs   *errorx.ErrorHandler
}

// NewWorldHandler creates a new world telemetry handler
func NewWorldHandler(logger *zap.Logger, svc *world.Service) *WorldHandler {
	return &WorldHandler{
		logger: logger.Named("apiserver.world"),
		svc:    svc,
		errs:   errorx.NewErrorHandler(logger),
	}
}

// HandleLogDeath records one player death in an area
func (h *WorldHandler) HandleLogDeath(c *gin.Context) {
	var req dto.LogDeathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.HandleError(c, errorx.ValidationError("body", "", err.Error()))
		return
	}

	count, err := h.svc.LogDeath(c.Request.Context(), req.AreaID)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.LogDeathResponse{
		Message:       fmt.Sprintf("Death logged for %s", req.AreaID),
		AreaID:        req.AreaID,
		NewDeathCount: count,
	})
}

// HandleGetDreadLevel serves the dread level of one area
func (h *WorldHandler) HandleGetDreadLevel(c *gin.Context) {
	areaID := c.Query("area_id")
	level, err := h.svc.DreadLevel(c.Request.Context(), areaID)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.DreadLevelResponse{
		AreaID:     areaID,
		DreadLevel: level,
	})
}

// HandleGetElevatedDreadAreas serves every area with non-zero dread
func (h *WorldHandler) HandleGetElevatedDreadAreas(c *gin.Context) {
	levels, err := h.svc.ElevatedAreas(c.Request.Context())
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	areas := make([]dto.ElevatedDreadArea, 0, len(levels))
	for _, lvl := range levels {
		areas = append(areas, dto.ElevatedDreadArea{
			AreaID:     lvl.AreaID,
			DreadLevel: lvl.Level,
		})
	}
	c.JSON(http.StatusOK, &dto.ElevatedDreadAreasResponse{ElevatedAreas: areas})
}

// HandleLeaveNote places a single-word note at a location
func (h *WorldHandler) HandleLeaveNote(c *gin.Context) {
	var req dto.LeaveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.HandleError(c, errorx.ValidationError("body", "", err.Error()))
		return
	}

	if err := h.svc.LeaveNote(c.Request.Context(), req.AreaID, req.NoteLocationID, req.Word); err != nil {
		h.errs.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.LeaveNoteResponse{
		Message: "Note left/updated successfully",
	})
}

// HandleGetPlayerNotes serves the notes left in an area
func (h *WorldHandler) HandleGetPlayerNotes(c *gin.Context) {
	areaID := c.Query("area_id")
	notes, err := h.svc.PlayerNotes(c.Request.Context(), areaID)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	items := make([]dto.PlayerNote, 0, len(notes))
	for _, note := range notes {
		items = append(items, dto.PlayerNote{
			NoteLocationID: note.NoteLocationID,
			Word:           note.Word,
		})
	}
	c.JSON(http.StatusOK, &dto.PlayerNotesResponse{
		AreaID: areaID,
		Notes:  items,
	})
}
