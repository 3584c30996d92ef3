package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lab-hours/internal/apperr"
	"lab-hours/internal/repository"
)

// GetHistory handles GET /api/history.
func (h *Handler) GetHistory(c *gin.Context) {
	filter := repository.HistoryFilter{Limit: 100}

	userID, err := optionalUint(c.Query("user_id"), "user_id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter.UserID = userID

	if filter.From, err = h.optionalDate(c.Query("from"), "from"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.To, err = h.optionalDate(c.Query("to"), "to"); err != nil {
		h.respondError(c, err)
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.respondError(c, apperr.Validation("limit", "некорректный лимит %q", raw))
			return
		}
		filter.Limit = limit
	}

	rows, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// GetUserWeekHistory handles GET /api/users/:user_id/history/:week_start.
func (h *Handler) GetUserWeekHistory(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	date, err := h.calc.ParseDate(c.Param("week_start"))
	if err != nil {
		h.respondError(c, apperr.Validation("week_start", "ожидается дата в формате ГГГГ-ММ-ДД"))
		return
	}

	// любая дата внутри недели указывает на эту неделю
	window := h.calc.WindowFor(date)

	row, err := h.history.Get(c.Request.Context(), userID, window.Start)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *Handler) optionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := h.calc.ParseDate(value)
	if err != nil {
		return nil, apperr.Validation(field, "ожидается дата в формате ГГГГ-ММ-ДД")
	}
	return &date, nil
}
