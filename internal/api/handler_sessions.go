package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
)

type startSessionRequest struct {
	Activity  string `json:"activity"`
	Location  string `json:"location"`
	ProjectID *uint  `json:"project_id"`
}

// StartSession handles POST /api/users/:user_id/sessions.
func (h *Handler) StartSession(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	var req startSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, apperr.Validation("body", "некорректный запрос"))
			return
		}
	}

	session, err := h.sessions.Start(c.Request.Context(), userID, req.Activity, req.Location, req.ProjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

type sessionTransition func(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error)

func (h *Handler) transition(fn sessionTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.uintParam(c, "user_id")
		if !ok {
			return
		}
		sessionID, ok := h.uintParam(c, "session_id")
		if !ok {
			return
		}

		session, err := fn(c.Request.Context(), userID, sessionID)
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// PauseSession handles POST /api/users/:user_id/sessions/:session_id/pause.
func (h *Handler) PauseSession(c *gin.Context) { h.transition(h.sessions.Pause)(c) }

// ResumeSession handles POST /api/users/:user_id/sessions/:session_id/resume.
func (h *Handler) ResumeSession(c *gin.Context) { h.transition(h.sessions.Resume)(c) }

// StopSession handles POST /api/users/:user_id/sessions/:session_id/stop.
func (h *Handler) StopSession(c *gin.Context) { h.transition(h.stopAndRecord)(c) }

func (h *Handler) stopAndRecord(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error) {
	session, err := h.sessions.Stop(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	h.users.RecordWorkedHours(ctx, session)
	return session, nil
}

// GetSessions handles GET /api/users/:user_id/sessions.
func (h *Handler) GetSessions(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respondError(c, apperr.Validation("limit", "некорректный лимит %q", raw))
			return
		}
		limit = parsed
	}

	sessions, err := h.sessions.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetActiveSession handles GET /api/users/:user_id/sessions/active.
func (h *Handler) GetActiveSession(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	session, err := h.sessions.Active(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

type hoursResponse struct {
	UserID    uint      `json:"user_id"`
	ProjectID *uint     `json:"project_id,omitempty"`
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Seconds   int64     `json:"seconds"`
	Hours     float64   `json:"hours"`
	Budget    float64   `json:"budget_hours"`
}

// GetHours handles GET /api/users/:user_id/hours.
func (h *Handler) GetHours(c *gin.Context) {
	userID, ok := h.uintParam(c, "user_id")
	if !ok {
		return
	}

	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.respondError(c, apperr.Validation("at", "ожидается время в формате RFC3339"))
			return
		}
		at = parsed
	}

	projectID, err := optionalUint(c.Query("project_id"), "project_id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	window := h.calc.WindowFor(at)
	seconds, err := h.hours.SumDuration(c.Request.Context(), userID, window, projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hoursResponse{
		UserID:    userID,
		ProjectID: projectID,
		WeekStart: window.Start,
		WeekEnd:   window.End,
		Seconds:   seconds,
		Hours:     float64(seconds) / 3600,
		Budget:    user.WeekHours,
	})
}
