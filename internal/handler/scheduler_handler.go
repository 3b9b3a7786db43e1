package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

// SchedulerHandler triggers scheduling runs.
type SchedulerHandler struct {
	service *service.ScheduleRunService
}

// NewSchedulerHandler creates a new handler.
func NewSchedulerHandler(svc *service.ScheduleRunService) *SchedulerHandler {
	return &SchedulerHandler{service: svc}
}

// Run godoc
// @Summary Trigger a scheduling run
// @Description Collect awaiting bookings, invoke the external solver and reconcile the result
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /scheduler/run [post]
func (h *SchedulerHandler) Run(c *gin.Context) {
	res, err := h.service.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
