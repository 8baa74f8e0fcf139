package forecast

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/fleet-engine/pkg/common"
)

// Handler handles HTTP requests for demand forecasts
type Handler struct {
	service *Service
}

// NewHandler creates a new forecast handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Generate produces hourly forecasts for a station
// POST /api/v1/forecasts
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateForecastRequest
	if !common.BindJSON(c, &req) {
		return
	}

	forecasts, err := h.service.Forecast(c.Request.Context(), req.StationID, req.StartTime, req.EndTime, req.Factors)
	if common.HandleServiceError(c, err, "failed to generate forecast") {
		return
	}

	common.CreatedResponse(c, forecasts)
}

// UpdateAccuracy records the observed demand for a forecast hour
// POST /api/v1/forecasts/accuracy
func (h *Handler) UpdateAccuracy(c *gin.Context) {
	var req UpdateAccuracyRequest
	if !common.BindJSON(c, &req) {
		return
	}

	f, err := h.service.UpdateAccuracy(c.Request.Context(), req.StationID, req.Timestamp, req.ActualDemand)
	if common.HandleServiceError(c, err, "failed to update forecast accuracy") {
		return
	}

	common.SuccessResponse(c, f)
}

// GetMetrics returns accuracy metrics for a station and time range
// GET /api/v1/forecasts/metrics?station_id=&start=&end=
func (h *Handler) GetMetrics(c *gin.Context) {
	stationID, ok := common.ParseUUIDQuery(c, "station_id", "station ID", true)
	if !ok {
		return
	}
	start, ok := common.ParseTimeQuery(c, "start")
	if !ok {
		return
	}
	end, ok := common.ParseTimeQuery(c, "end")
	if !ok {
		return
	}

	metrics, err := h.service.ForecastMetrics(c.Request.Context(), stationID, start, end)
	if common.HandleServiceError(c, err, "failed to get forecast metrics") {
		return
	}

	common.SuccessResponse(c, metrics)
}

// RegisterRoutes registers forecast routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	forecasts := r.Group("/api/v1/forecasts")
	{
		forecasts.POST("", h.Generate)
		forecasts.POST("/accuracy", h.UpdateAccuracy)
		forecasts.GET("/metrics", h.GetMetrics)
	}
}
