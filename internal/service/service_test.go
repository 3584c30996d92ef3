package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lab-hours/internal/models"
	"lab-hours/internal/repository"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type testEnv struct {
	db        *gorm.DB
	users     *repository.GormUserRepository
	sessions  *repository.GormWorkSessionRepository
	history   *repository.GormWeeklyHoursHistoryRepository
	schedules *repository.GormUserScheduleRepository
	log       *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := quietLogger()
	env := &testEnv{db: db, log: log}

	env.users, err = repository.NewGormUserRepository(db, log)
	require.NoError(t, err)
	env.sessions, err = repository.NewGormWorkSessionRepository(db, log)
	require.NoError(t, err)
	env.history, err = repository.NewGormWeeklyHoursHistoryRepository(db, log)
	require.NoError(t, err)
	env.schedules, err = repository.NewGormUserScheduleRepository(db, log)
	require.NoError(t, err)

	return env
}

func (e *testEnv) createUser(t *testing.T, name string, weekHours float64) *models.User {
	t.Helper()
	user := &models.User{Name: name, WeekHours: weekHours}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// fakeClock - управляемые часы для тестов
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
