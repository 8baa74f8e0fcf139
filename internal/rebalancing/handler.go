package rebalancing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/richxcame/fleet-engine/pkg/validation"
)

// Handler handles HTTP requests for rebalancing tasks and routes
type Handler struct {
	service *Service
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateTask creates a rebalancing task
// POST /api/v1/rebalancing/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if !common.BindJSON(c, &req) {
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), req.StationID, req.RequiredCount, req.Priority, req.Notes)
	if common.HandleServiceError(c, err, "failed to create rebalancing task") {
		return
	}

	common.CreatedResponse(c, task)
}

// GetTask returns a rebalancing task
// GET /api/v1/rebalancing/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	taskID, ok := common.ParseUUIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), taskID)
	if common.HandleServiceError(c, err, "failed to get rebalancing task") {
		return
	}

	common.SuccessResponse(c, task)
}

// UpdateTask partially updates a rebalancing task
// PATCH /api/v1/rebalancing/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, ok := common.ParseUUIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	var req TaskUpdate
	if !common.BindJSON(c, &req) {
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), taskID, req)
	if common.HandleServiceError(c, err, "failed to update rebalancing task") {
		return
	}

	common.SuccessResponse(c, task)
}

// GetMetrics returns task metrics, optionally for one zone
// GET /api/v1/rebalancing/metrics?zone_id=
func (h *Handler) GetMetrics(c *gin.Context) {
	var zoneID *string
	if z := c.Query("zone_id"); z != "" {
		zoneID = &z
	}

	metrics, err := h.service.Metrics(c.Request.Context(), zoneID)
	if common.HandleServiceError(c, err, "failed to get rebalancing metrics") {
		return
	}

	common.SuccessResponse(c, metrics)
}

// Optimize previews routes over pending tasks
// POST /api/v1/rebalancing/routes/optimize
func (h *Handler) Optimize(c *gin.Context) {
	h.route(c, h.service.Optimize, "failed to optimize routes")
}

// Dispatch claims pending tasks and returns their routes
// POST /api/v1/rebalancing/routes/dispatch
func (h *Handler) Dispatch(c *gin.Context) {
	h.route(c, h.service.Dispatch, "failed to dispatch routes")
}

type routeFunc func(ctx context.Context, ids []uuid.UUID, location geo.GeoPoint, capacity int) ([]Route, error)

func (h *Handler) route(c *gin.Context, build routeFunc, failure string) {
	var req OptimizeRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateCoordinates(req.VehicleLocation.Latitude, req.VehicleLocation.Longitude); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	routes, err := build(c.Request.Context(), req.TaskIDs, req.VehicleLocation, req.VehicleCapacity)
	if common.HandleServiceError(c, err, failure) {
		return
	}

	tasks := 0
	for _, r := range routes {
		tasks += len(r.Stops)
	}
	common.SuccessResponse(c, OptimizeResponse{
		Routes:     routes,
		RouteCount: len(routes),
		TaskCount:  tasks,
	})
}

// RegisterRoutes registers rebalancing routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/rebalancing")
	{
		api.POST("/tasks", h.CreateTask)
		api.GET("/tasks/:id", h.GetTask)
		api.PATCH("/tasks/:id", h.UpdateTask)
		api.GET("/metrics", h.GetMetrics)
		api.POST("/routes/optimize", h.Optimize)
		api.POST("/routes/dispatch", h.Dispatch)
	}
}
