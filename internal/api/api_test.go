package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lab-hours/internal/config"
	"lab-hours/internal/models"
	"lab-hours/internal/repository"
	"lab-hours/internal/rollover"
	"lab-hours/internal/service"
	"lab-hours/pkg/weekwindow"
)

var testNow = time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)

type testServer struct {
	router   *gin.Engine
	users    *repository.GormUserRepository
	sessions *repository.GormWorkSessionRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	userRepo, err := repository.NewGormUserRepository(db, log)
	require.NoError(t, err)
	sessionRepo, err := repository.NewGormWorkSessionRepository(db, log)
	require.NoError(t, err)
	historyRepo, err := repository.NewGormWeeklyHoursHistoryRepository(db, log)
	require.NoError(t, err)
	scheduleRepo, err := repository.NewGormUserScheduleRepository(db, log)
	require.NoError(t, err)

	calc := weekwindow.NewCalculator(time.Monday, time.UTC)
	users := service.NewUserService(userRepo, log)
	sessions := service.NewWorkSessionService(sessionRepo, userRepo, log)
	sessions.SetClock(func() time.Time { return testNow })
	hours := service.NewHourAggregator(sessionRepo, log)
	history := service.NewWeeklyHistoryService(historyRepo, log)

	scheduler, err := rollover.NewScheduler(users, hours, history, calc,
		rollover.Options{Schedule: "59 23 * * 0", Clock: func() time.Time { return testNow }}, log)
	require.NoError(t, err)

	h := NewHandler(Deps{
		Users:      users,
		Sessions:   sessions,
		Hours:      hours,
		History:    history,
		Schedules:  service.NewUserScheduleService(scheduleRepo, userRepo, log),
		Scheduler:  scheduler,
		Calculator: calc,
		Logger:     log,
	})

	router := NewRouter(h, config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60})

	return &testServer{router: router, users: userRepo, sessions: sessionRepo}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createUser(t *testing.T, name string, budget float64) *models.User {
	user := &models.User{Name: name, WeekHours: budget}
	require.NoError(t, s.users.Create(context.Background(), user))
	return user
}

func (s *testServer) addCompleted(t *testing.T, user *models.User, start time.Time, seconds int64) {
	end := start.Add(time.Duration(seconds) * time.Second)
	require.NoError(t, s.sessions.Create(context.Background(), &models.WorkSession{
		UserID: user.ID, UserName: user.Name, StartTime: start, EndTime: &end, DurationSeconds: &seconds, Status: models.SessionCompleted,
	}))
}

func TestRollover_ManualResetAndHistory(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "Alice", 20)
	s.addCompleted(t, user, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), 3600)
	s.addCompleted(t, user, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 7200)

	// кеш статуса заполняется до запуска
	w := s.do(t, http.MethodGet, "/api/rollover", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "last_run")

	w = s.do(t, http.MethodPost, "/api/rollover", `{"action":"manual-reset"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report rollover.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Archived, 1)
	assert.Equal(t, 3.0, report.Archived[0].HoursArchived)

	// кеш сброшен после запуска
	w = s.do(t, http.MethodGet, "/api/rollover", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), report.RunID.String())

	w = s.do(t, http.MethodGet, "/api/history?from=2024-01-01&to=2024-01-08", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.WeeklyHoursHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0].TotalHours)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/history/2024-01-04", user.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/history/2023-12-25", user.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRollover_BadRequests(t *testing.T) {
	s := newTestServer(t)

	testCases := map[string]string{
		"unknown action": `{"action":"explode"}`,
		"missing week":   `{"action":"create_week_history"}`,
		"malformed week": `{"action":"create_week_history","weekStart":"01/01/2024"}`,
		"future week":    `{"action":"create_week_history","weekStart":"2024-03-01"}`,
		"week running":   `{"action":"create_week_history","weekStart":"2024-01-03"}`,
		"not json":       `action=manual-reset`,
	}

	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/rollover", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRollover_CreateWeekHistory(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "Alice", 20)
	s.addCompleted(t, user, time.Date(2023, 12, 27, 9, 0, 0, 0, time.UTC), 5400)

	w := s.do(t, http.MethodPost, "/api/rollover", `{"action":"create_week_history","weekStart":"2023-12-25"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report rollover.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Archived, 1)
	assert.Equal(t, 1.5, report.Archived[0].HoursArchived)
	assert.Equal(t, rollover.KindBackfill, report.Kind)
}

func TestSessions_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "Alice", 20)
	base := fmt.Sprintf("/api/users/%d/sessions", user.ID)

	w := s.do(t, http.MethodPost, base, `{"activity":"experiment","location":"lab 3"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var session models.WorkSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, models.SessionActive, session.Status)

	w = s.do(t, http.MethodGet, base+"/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "experiment")

	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/pause", base, session.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/pause", base, session.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/resume", base, session.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/stop", base, session.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/stop", base, session.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/stop", base, session.ID+10), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/users/abc/sessions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/users/999/sessions", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, base+"?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.WorkSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestHours(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "Alice", 20)
	s.addCompleted(t, user, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), 3600)
	s.addCompleted(t, user, time.Date(2023, 12, 28, 9, 0, 0, 0, time.UTC), 7200)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/hours?at=2024-01-05T12:00:00Z", user.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp hoursResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3600), resp.Seconds)
	assert.Equal(t, 1.0, resp.Hours)
	assert.Equal(t, 20.0, resp.Budget)
	assert.True(t, resp.WeekStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/hours?at=yesterday", user.ID), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedules_Capacity(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "Alice", 6)
	base := fmt.Sprintf("/api/users/%d/schedules", user.ID)

	w := s.do(t, http.MethodPost, base, `{"day_of_week":1,"start_time":"09:00","end_time":"13:00"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var entry models.UserSchedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))

	w = s.do(t, http.MethodPost, base, `{"day_of_week":2,"start_time":"09:00","end_time":"12:00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"requested_hours":7`)
	assert.Contains(t, w.Body.String(), `"budget_hours":6`)

	w = s.do(t, http.MethodPost, base, `{"day_of_week":2,"start_time":"12:00","end_time":"09:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, entry.ID), `{"day_of_week":1,"start_time":"09:00","end_time":"15:00"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"planned_hours":6`)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, entry.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, entry.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
