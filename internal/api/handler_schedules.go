package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-hours/internal/apperr"
	"lab-hours/internal/service"
)

// GetSchedules handles GET /api/users/:user_id/schedules.
func (h *Handler) GetSchedules(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	entries, err := h.schedules.List(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	planned, budget, err := h.schedules.PlannedHours(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":       entries,
		"planned_hours": planned,
		"budget_hours":  budget,
	})
}

// CreateSchedule handles POST /api/users/:user_id/schedules.
func (h *Handler) CreateSchedule(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	var input service.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("body", "некорректный запрос"))
		return
	}

	entry, err := h.schedules.Create(c.Request.Context(), userID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// UpdateSchedule handles PUT /api/users/:user_id/schedules/:schedule_id.
func (h *Handler) UpdateSchedule(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}
	entryID, ok := h.uintParam(c, "schedule_id")
	if !ok {
		return
	}

	var input service.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("body", "некорректный запрос"))
		return
	}

	entry, err := h.schedules.Update(c.Request.Context(), userID, entryID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteSchedule handles DELETE /api/users/:user_id/schedules/:schedule_id.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}
	entryID, ok := h.uintParam(c, "schedule_id")
	if !ok {
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), userID, entryID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
