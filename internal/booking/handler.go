package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/validation"
)

// Handler handles HTTP requests for bookings
type Handler struct {
	service *Service
}

// NewHandler creates a new booking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Validate checks a proposed booking's duration and quotes its price
// POST /api/v1/bookings/validate
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateBookingRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(req); common.HandleServiceError(c, err, "invalid booking request") {
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req.StartTime, req.EndTime, req.Type)
	if common.HandleServiceError(c, err, "failed to validate booking") {
		return
	}

	common.SuccessResponse(c, quote)
}

// CheckConflicts reports whether a vehicle is free for a window
// POST /api/v1/bookings/conflicts
func (h *Handler) CheckConflicts(c *gin.Context) {
	var req ConflictRequest
	if !common.BindJSON(c, &req) {
		return
	}

	pattern, err := parsePatternPtr(req.RecurringPattern)
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError(err.Error(), err))
		return
	}

	conflict, err := h.service.HasConflict(c.Request.Context(), req.VehicleID, req.StartTime, req.EndTime, pattern)
	if common.HandleServiceError(c, err, "failed to check booking conflicts") {
		return
	}

	common.SuccessResponse(c, ConflictResponse{
		HasConflict: conflict,
		Occurrences: len(Windows(req.StartTime, req.EndTime, pattern)),
	})
}

// Create books a vehicle, including any recurrences
// POST /api/v1/bookings
func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateBooking(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to create booking") {
		return
	}

	common.CreatedResponse(c, resp)
}

// Cancel cancels a booking and returns the fee owed
// POST /api/v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	bookingID, ok := common.ParseUUIDParam(c, "id", "booking ID")
	if !ok {
		return
	}

	resp, err := h.service.CancelBooking(c.Request.Context(), bookingID)
	if common.HandleServiceError(c, err, "failed to cancel booking") {
		return
	}

	common.SuccessResponse(c, resp)
}

// GetCancellationFee quotes the fee for cancelling now
// GET /api/v1/bookings/cancellation-fee?start_time=
func (h *Handler) GetCancellationFee(c *gin.Context) {
	start, ok := common.ParseTimeQuery(c, "start_time")
	if !ok {
		return
	}

	fee, err := h.service.CancellationFee(c.Request.Context(), start)
	if common.HandleServiceError(c, err, "failed to compute cancellation fee") {
		return
	}

	common.SuccessResponse(c, gin.H{"start_time": start, "cancellation_fee": fee})
}

// RegisterRoutes registers booking routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	bookings := r.Group("/api/v1/bookings")
	{
		bookings.POST("", h.Create)
		bookings.POST("/validate", h.Validate)
		bookings.POST("/conflicts", h.CheckConflicts)
		bookings.GET("/cancellation-fee", h.GetCancellationFee)
		bookings.POST("/:id/cancel", h.Cancel)
	}
}
