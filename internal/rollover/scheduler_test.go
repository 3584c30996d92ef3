package rollover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
	"lab-hours/internal/repository"
	"lab-hours/internal/service"
	"lab-hours/pkg/weekwindow"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// воскресенье 7 января 2024, 23:59 - конец недели с понедельника 1 января
var sundayNight = time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)

type fakeUsers struct {
	mu     sync.Mutex
	users  []*models.User
	resets map[uint]int
}

func (f *fakeUsers) ListActive(context.Context) ([]*models.User, error) {
	return f.users, nil
}

func (f *fakeUsers) ResetCurrentWeekHours(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resets == nil {
		f.resets = map[uint]int{}
	}
	f.resets[userID]++
	return nil
}

type fakeHours struct {
	hours  map[uint]float64
	failOn uint
}

func (f *fakeHours) SumHours(_ context.Context, userID uint, _ weekwindow.Window, _ *uint) (float64, error) {
	if userID == f.failOn {
		return 0, apperr.Persistence("sum work session durations", errors.New("database is locked"))
	}
	return f.hours[userID], nil
}

type fakeSnapshots struct {
	mu   sync.Mutex
	rows map[string]*models.WeeklyHoursHistory
}

func (f *fakeSnapshots) CreateIfAbsent(_ context.Context, userID uint, userName string, window weekwindow.Window, hours float64) (*models.WeeklyHoursHistory, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]*models.WeeklyHoursHistory{}
	}
	key := userName + "/" + window.Start.String()
	if row, ok := f.rows[key]; ok {
		return row, false, nil
	}
	if hours <= 0 {
		return nil, false, nil
	}
	row := &models.WeeklyHoursHistory{UserID: userID, UserName: userName, WeekStart: window.Start, WeekEnd: window.End, TotalHours: hours}
	f.rows[key] = row
	return row, true, nil
}

func newFakeScheduler(t *testing.T, users *fakeUsers, hours *fakeHours, snaps *fakeSnapshots) *Scheduler {
	t.Helper()
	return newFakeSchedulerAt(t, func() time.Time { return sundayNight }, users, hours, snaps)
}

func newFakeSchedulerAt(t *testing.T, clock func() time.Time, users *fakeUsers, hours *fakeHours, snaps *fakeSnapshots) *Scheduler {
	t.Helper()
	s, err := NewScheduler(users, hours, snaps,
		weekwindow.NewCalculator(time.Monday, time.UTC),
		Options{Schedule: "59 23 * * 0", PersistenceTimeout: time.Second, Clock: clock},
		quietLogger())
	require.NoError(t, err)
	return s
}

func TestPerformRollover_PartialFailure(t *testing.T) {
	users := &fakeUsers{users: []*models.User{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Carol"},
		{ID: 4, Name: "Dave"},
	}}
	hours := &fakeHours{hours: map[uint]float64{1: 3, 2: 5, 3: 2}, failOn: 2}
	s := newFakeScheduler(t, users, hours, &fakeSnapshots{})

	report, err := s.PerformRollover(context.Background(), sundayNight)
	require.NoError(t, err)

	require.Len(t, report.Archived, 2)
	assert.Equal(t, uint(1), report.Archived[0].UserID)
	assert.Equal(t, 3.0, report.Archived[0].HoursArchived)
	assert.Equal(t, uint(3), report.Archived[1].UserID)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, uint(2), report.Failures[0].UserID)
	assert.Contains(t, report.Failures[0].Error, "database is locked")

	// у Dave нет часов: записи нет, счетчик все равно обнулен
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, users.resets[4])
	assert.Zero(t, users.resets[2])

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), report.Window.Start)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), report.Window.End)
	assert.Equal(t, KindManual, report.Kind)
}

func TestCreateHistoryForWeek_DoesNotReset(t *testing.T) {
	users := &fakeUsers{users: []*models.User{{ID: 1, Name: "Alice"}}}
	snaps := &fakeSnapshots{}
	// понедельник следующей недели: неделя с 1 января уже закончилась
	nextMonday := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	s := newFakeSchedulerAt(t, func() time.Time { return nextMonday }, users, &fakeHours{hours: map[uint]float64{1: 4}}, snaps)

	report, err := s.CreateHistoryForWeek(context.Background(), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, report.Archived, 1)
	assert.Equal(t, KindBackfill, report.Kind)
	assert.Zero(t, users.resets[1])

	// повторная дозапись - без изменений
	report, err = s.CreateHistoryForWeek(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, report.Archived)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, snaps.rows, 1)

	_, err = s.CreateHistoryForWeek(context.Background(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateHistoryForWeek_RejectsWeekInProgress(t *testing.T) {
	users := &fakeUsers{users: []*models.User{{ID: 1, Name: "Alice"}}}
	hours := &fakeHours{hours: map[uint]float64{1: 2}}
	snaps := &fakeSnapshots{}

	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	s := newFakeSchedulerAt(t, func() time.Time { return now }, users, hours, snaps)

	_, err := s.CreateHistoryForWeek(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "еще не закончилась")
	assert.Empty(t, snaps.rows)
	assert.Nil(t, s.LastReport())

	// к концу недели набралось 10 часов, архив получает полный итог
	hours.hours[1] = 10
	now = sundayNight
	report, err := s.PerformRollover(context.Background(), sundayNight)
	require.NoError(t, err)
	require.Len(t, report.Archived, 1)
	assert.Equal(t, 10.0, report.Archived[0].HoursArchived)
	assert.Zero(t, report.Skipped)
}

func TestScheduler_ScheduledRun(t *testing.T) {
	users := &fakeUsers{users: []*models.User{{ID: 1, Name: "Alice"}}}
	snaps := &fakeSnapshots{}
	s := newFakeScheduler(t, users, &fakeHours{hours: map[uint]float64{1: 6}}, snaps)

	var seen []*Report
	s.OnRun(func(r *Report) { seen = append(seen, r) })

	s.scheduledRun()

	report := s.LastReport()
	require.NotNil(t, report)
	require.Len(t, seen, 1)
	assert.Equal(t, KindScheduled, report.Kind)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), report.Window.Start)
	require.Len(t, report.Archived, 1)
	assert.Equal(t, 6.0, report.Archived[0].HoursArchived)
	assert.Equal(t, 1, users.resets[1])
	assert.Len(t, snaps.rows, 1)
}

func TestScheduler_HooksAndStatus(t *testing.T) {
	users := &fakeUsers{users: []*models.User{{ID: 1, Name: "Alice"}}}
	s := newFakeScheduler(t, users, &fakeHours{hours: map[uint]float64{1: 1}}, &fakeSnapshots{})

	var seen []*Report
	s.OnRun(func(r *Report) { seen = append(seen, r) })

	status := s.Status()
	assert.False(t, status.Running)
	assert.Nil(t, status.LastRun)
	assert.Equal(t, "каждое воскресенье в 23:59 (UTC)", status.Description)
	assert.Equal(t, "Monday", status.WeekStart)
	// следующее срабатывание - через неделю после sundayNight
	assert.True(t, sundayNight.AddDate(0, 0, 7).Equal(status.NextRun), "next run %s", status.NextRun)

	report, err := s.ManualReset(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Same(t, report, seen[0])

	status = s.Status()
	require.NotNil(t, status.LastRun)
	assert.Equal(t, report.RunID, status.LastRun.RunID)
	assert.Equal(t, 1, status.LastRun.Archived)
	assert.Same(t, report, s.LastReport())
}

func TestScheduler_StartStop(t *testing.T) {
	s := newFakeScheduler(t, &fakeUsers{}, &fakeHours{}, &fakeSnapshots{})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.Status().Running)

	s.Stop()
	assert.False(t, s.Status().Running)
	s.Stop()
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(&fakeUsers{}, &fakeHours{}, &fakeSnapshots{},
		weekwindow.NewCalculator(time.Monday, time.UTC), Options{Schedule: "weekly"}, quietLogger())
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	assert.Equal(t, "каждый понедельник в 00:05 (Europe/Moscow)", Describe("5 0 * * 1", moscow))
	assert.Equal(t, "каждую пятницу в 18:30 (UTC)", Describe("30 18 * * FRI", time.UTC))
	assert.Equal(t, "каждый день в 03:00 (UTC)", Describe("0 3 * * *", nil))
	assert.Equal(t, `по расписанию cron "*/5 * * * *" (UTC)`, Describe("*/5 * * * *", time.UTC))
}

// Сценарий целиком на sqlite: 3 часа за неделю, архив, обнуление, повтор без изменений
func TestPerformRollover_Scenario(t *testing.T) {
	ctx := context.Background()
	log := quietLogger()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	userRepo, err := repository.NewGormUserRepository(db, log)
	require.NoError(t, err)
	sessionRepo, err := repository.NewGormWorkSessionRepository(db, log)
	require.NoError(t, err)
	historyRepo, err := repository.NewGormWeeklyHoursHistoryRepository(db, log)
	require.NoError(t, err)

	user := &models.User{Name: "U", WeekHours: 20, CurrentWeekHours: 3}
	require.NoError(t, userRepo.Create(ctx, user))

	monday := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, seconds := range []int64{3600, 7200} {
		start := monday.AddDate(0, 0, i)
		end := start.Add(time.Duration(seconds) * time.Second)
		d := seconds
		require.NoError(t, sessionRepo.Create(ctx, &models.WorkSession{
			UserID: user.ID, UserName: user.Name, StartTime: start, EndTime: &end, DurationSeconds: &d, Status: models.SessionCompleted,
		}))
	}

	s, err := NewScheduler(
		service.NewUserService(userRepo, log),
		service.NewHourAggregator(sessionRepo, log),
		service.NewWeeklyHistoryService(historyRepo, log),
		weekwindow.NewCalculator(time.Monday, time.UTC),
		Options{Schedule: "59 23 * * 0", Clock: func() time.Time { return sundayNight }},
		log)
	require.NoError(t, err)

	report, err := s.PerformRollover(ctx, sundayNight)
	require.NoError(t, err)
	require.Len(t, report.Archived, 1)
	assert.Equal(t, 3.0, report.Archived[0].HoursArchived)

	reloaded, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.CurrentWeekHours)

	report, err = s.PerformRollover(ctx, sundayNight)
	require.NoError(t, err)
	assert.Empty(t, report.Archived)
	assert.Equal(t, 1, report.Skipped)

	rows, err := historyRepo.List(ctx, repository.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0].TotalHours)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].WeekStart.UTC())
}
