package handlers

import (
	"net/http"
	"strconv"

	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/gin-gonic/gin"
)

type StageHandler struct {
	rosterService *services.RosterService
}

func NewStageHandler(rosterService *services.RosterService) *StageHandler {
	return &StageHandler{rosterService: rosterService}
}

// ListActive godoc
// @Summary      Active stages
// @Description  Open stages, optionally limited to one event
// @Tags         stages
// @Produce      json
// @Security     BearerAuth
// @Param        event_id path int false "Event ID"
// @Param        event query int false "Event ID"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/stages/{event_id} [get]
// @Router       /api/v1/stage [get]
func (h *StageHandler) ListActive(c *gin.Context) {
	raw := c.Param("event_id")
	if raw == "" {
		raw = c.Query("event")
	}

	var eventID *uint
	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event id", Field: "event"})
			return
		}
		v := uint(id)
		eventID = &v
	}

	stages, err := h.rosterService.ActiveStages(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}
