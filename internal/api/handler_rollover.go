package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/rollover"
)

const (
	actionManualReset       = "manual-reset"
	actionCreateWeekHistory = "create_week_history"
)

type rolloverRequest struct {
	Action    string `json:"action"`
	WeekStart string `json:"weekStart"`
}

// GetRolloverStatus handles GET /api/rollover.
func (h *Handler) GetRolloverStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// PostRollover handles POST /api/rollover.
func (h *Handler) PostRollover(c *gin.Context) {
	var req rolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("body", "некорректный запрос"))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"action":     req.Action,
		"week_start": req.WeekStart,
	}).Info("Rollover requested via API")

	var (
		report *rollover.Report
		err    error
	)

	switch req.Action {
	case actionManualReset:
		report, err = h.scheduler.ManualReset(c.Request.Context())
	case actionCreateWeekHistory:
		if req.WeekStart == "" {
			h.respondError(c, apperr.Validation("weekStart", "не указано начало недели"))
			return
		}
		weekStart, parseErr := h.calc.ParseDate(req.WeekStart)
		if parseErr != nil {
			h.respondError(c, apperr.Validation("weekStart", "ожидается дата в формате ГГГГ-ММ-ДД"))
			return
		}
		report, err = h.scheduler.CreateHistoryForWeek(c.Request.Context(), weekStart)
	default:
		h.respondError(c, apperr.Validation("action", "неизвестное действие %q", req.Action))
		return
	}

	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
