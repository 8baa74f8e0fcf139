package stations

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/geo"
)

// Handler handles HTTP requests for station balance
type Handler struct {
	service           *Service
	defaultResolution int
}

// NewHandler creates a new station handler
func NewHandler(service *Service, defaultResolution int) *Handler {
	if !geo.ValidResolution(defaultResolution) {
		defaultResolution = geo.H3ResolutionStation
	}
	return &Handler{service: service, defaultResolution: defaultResolution}
}

// EvaluateStation returns the balance evaluation for one station
// GET /api/v1/stations/:id/evaluation
func (h *Handler) EvaluateStation(c *gin.Context) {
	stationID, ok := common.ParseUUIDParam(c, "id", "station ID")
	if !ok {
		return
	}

	eval, err := h.service.EvaluateStation(c.Request.Context(), stationID)
	if common.HandleServiceError(c, err, "failed to evaluate station") {
		return
	}

	common.SuccessResponse(c, eval)
}

// EvaluateZone returns evaluations for all stations of a zone
// GET /api/v1/zones/:zoneId/evaluations
func (h *Handler) EvaluateZone(c *gin.Context) {
	evals, err := h.service.EvaluateZone(c.Request.Context(), c.Param("zoneId"))
	if common.HandleServiceError(c, err, "failed to evaluate zone") {
		return
	}

	common.SuccessResponseWithMeta(c, evals, &common.Meta{Total: int64(len(evals))})
}

// Heatmap returns the zone's imbalance aggregated by H3 cell
// GET /api/v1/zones/:zoneId/heatmap?resolution=8
func (h *Handler) Heatmap(c *gin.Context) {
	resolution := h.defaultResolution
	if raw := c.Query("resolution"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid resolution")
			return
		}
		resolution = parsed
	}

	cells, err := h.service.ImbalanceHeatmap(c.Request.Context(), c.Param("zoneId"), resolution)
	if common.HandleServiceError(c, err, "failed to build heatmap") {
		return
	}

	common.SuccessResponse(c, cells)
}

// AdjustCount applies an operator correction to a station's vehicle count
// POST /api/v1/stations/:id/count-adjustments
func (h *Handler) AdjustCount(c *gin.Context) {
	stationID, ok := common.ParseUUIDParam(c, "id", "station ID")
	if !ok {
		return
	}

	var req AdjustCountRequest
	if !common.BindJSON(c, &req) {
		return
	}

	count, err := h.service.AdjustCount(c.Request.Context(), stationID, req.Delta)
	if common.HandleServiceError(c, err, "failed to adjust station count") {
		return
	}

	common.SuccessResponse(c, AdjustCountResponse{StationID: stationID, CurrentCount: count})
}

// RegisterRoutes registers station routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	station := r.Group("/api/v1/stations/:id")
	{
		station.GET("/evaluation", h.EvaluateStation)
		station.POST("/count-adjustments", h.AdjustCount)
	}

	zones := r.Group("/api/v1/zones/:zoneId")
	{
		zones.GET("/evaluations", h.EvaluateZone)
		zones.GET("/heatmap", h.Heatmap)
	}
}
