package api

import (
	"net/http"

	"checkin-core/internal/handler/httperr"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type LaneHandler struct {
	laneQueries queries.LaneQueries
	roomQueries queries.RoomQueries
}

func NewLaneHandler(laneQueries queries.LaneQueries, roomQueries queries.RoomQueries) *LaneHandler {
	return &LaneHandler{laneQueries: laneQueries, roomQueries: roomQueries}
}

// @Summary Get lane session
// @Description Current session snapshot for one lane
// @Tags lanes
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Success 200 {object} queries.SessionView
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/session [get]
func (h *LaneHandler) GetLaneSession(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}

	view, err := h.laneQueries.GetLaneSession(c.Request.Context(), laneID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			httperr.AbortWithDomain(c, errs.NotFound("NO_ACTIVE_SESSION", "lane has no active session"))
			return
		}
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary List lanes
// @Description Every configured lane with its current session
// @Tags lanes
// @Produce json
// @Security BearerAuth
// @Success 200 {array} queries.LaneView
// @Router /lanes [get]
func (h *LaneHandler) ListLanes(c *gin.Context) {
	lanes, err := h.laneQueries.ListLanes(c.Request.Context())
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, lanes)
}

// @Summary Room availability
// @Description Assignable room counts per tier, net of soft holds and waitlist offers
// @Tags lanes
// @Produce json
// @Security BearerAuth
// @Success 200 {array} queries.RoomAvailabilityView
// @Router /rooms/available [get]
func (h *LaneHandler) RoomAvailability(c *gin.Context) {
	availability, err := h.roomQueries.AvailabilityByTier(c.Request.Context())
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}
