package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"lab-hours/internal/config"
	"lab-hours/internal/mw"
	"lab-hours/internal/rollover"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.logger))

	rateLimiter := mw.RateLimit(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, h.logger)

	responseCache := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	caching := responseCache.Middleware()

	// После архивирования статус и архив устарели
	h.scheduler.OnRun(func(*rollover.Report) { responseCache.Flush() })

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rollover", caching, h.GetRolloverStatus)
		api.POST("/rollover", h.PostRollover)

		api.GET("/history", caching, h.GetHistory)

		users := api.Group("/users/:user_id")
		users.POST("/sessions", h.StartSession)
		users.GET("/sessions", h.GetSessions)
		users.GET("/sessions/active", h.GetActiveSession)
		users.POST("/sessions/:session_id/pause", h.PauseSession)
		users.POST("/sessions/:session_id/resume", h.ResumeSession)
		users.POST("/sessions/:session_id/stop", h.StopSession)

		users.GET("/hours", h.GetHours)

		users.GET("/schedules", h.GetSchedules)
		users.POST("/schedules", h.CreateSchedule)
		users.PUT("/schedules/:schedule_id", h.UpdateSchedule)
		users.DELETE("/schedules/:schedule_id", h.DeleteSchedule)

		users.GET("/history/:week_start", caching, h.GetUserWeekHistory)
	}

	return r
}
