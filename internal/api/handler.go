package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/rollover"
	"lab-hours/internal/service"
	"lab-hours/pkg/weekwindow"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	users     *service.UserService
	sessions  *service.WorkSessionService
	hours     *service.HourAggregator
	history   *service.WeeklyHistoryService
	schedules *service.UserScheduleService
	scheduler *rollover.Scheduler
	calc      *weekwindow.Calculator
	logger    *logrus.Logger
}

// Deps - сервисы, которые использует HTTP слой
type Deps struct {
	Users      *service.UserService
	Sessions   *service.WorkSessionService
	Hours      *service.HourAggregator
	History    *service.WeeklyHistoryService
	Schedules  *service.UserScheduleService
	Scheduler  *rollover.Scheduler
	Calculator *weekwindow.Calculator
	Logger     *logrus.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		users:     d.Users,
		sessions:  d.Sessions,
		hours:     d.Hours,
		history:   d.History,
		schedules: d.Schedules,
		scheduler: d.Scheduler,
		calc:      d.Calculator,
		logger:    logger.OrDefault(d.Logger),
	}
}

// respondError переводит типизированную ошибку в HTTP статус
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var capErr *apperr.CapacityExceededError
	switch {
	case errors.As(err, &capErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":           err.Error(),
			"requested_hours": capErr.Requested,
			"budget_hours":    capErr.Budget,
		})
	case apperr.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsInvalidState(err):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}

func (h *Handler) uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		h.respondError(c, apperr.Validation(name, "некорректный идентификатор %q", c.Param(name)))
		return 0, false
	}
	return uint(value), true
}

func optionalUint(value, field string) (*uint, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, apperr.Validation(field, "некорректное значение %q", value)
	}
	id := uint(parsed)
	return &id, nil
}
