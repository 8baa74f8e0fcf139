package delivery

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/fleet-engine/pkg/common"
)

// Handler handles HTTP requests for delivery route optimization
type Handler struct {
	service *Service
}

// NewHandler creates a new delivery handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Optimize builds multi-stop routes for the given vehicles and stops
// POST /api/v1/deliveries/routes/optimize
func (h *Handler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.service.BuildRoutes(c.Request.Context(), req.Vehicles, req.Stops, req.Date)
	if common.HandleServiceError(c, err, "failed to optimize delivery routes") {
		return
	}

	common.SuccessResponse(c, result)
}

// RegisterRoutes registers delivery routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/v1/deliveries/routes/optimize", h.Optimize)
}
