package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

// LabHandler serves laboratory reads and day-sheet exports.
type LabHandler struct {
	labs    *service.LabService
	exports *service.ExportService
}

// NewLabHandler creates a new handler.
func NewLabHandler(labs *service.LabService, exports *service.ExportService) *LabHandler {
	return &LabHandler{labs: labs, exports: exports}
}

// List godoc
// @Summary List labs
// @Tags Labs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /labs [get]
func (h *LabHandler) List(c *gin.Context) {
	labs, err := h.labs.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, nil)
}

// Get godoc
// @Summary Get lab
// @Tags Labs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lab id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /labs/{id} [get]
func (h *LabHandler) Get(c *gin.Context) {
	lab, err := h.labs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab, nil)
}

// ExportDaySheet godoc
// @Summary Export lab day sheet
// @Description Download all bookings of one lab on one date as CSV or PDF
// @Tags Labs
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Lab id"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /labs/{id}/bookings/export [get]
func (h *LabHandler) ExportDaySheet(c *gin.Context) {
	file, err := h.exports.LabDaySheet(c.Request.Context(), c.Param("id"), c.Query("date"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
