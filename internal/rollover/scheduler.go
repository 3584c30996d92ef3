package rollover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
	"lab-hours/pkg/weekwindow"
)

// UserStore - активные пользователи и их счетчик текущей недели
type UserStore interface {
	ListActive(ctx context.Context) ([]*models.User, error)
	ResetCurrentWeekHours(ctx context.Context, userID uint) error
}

type HourSummer interface {
	SumHours(ctx context.Context, userID uint, window weekwindow.Window, projectID *uint) (float64, error)
}

type SnapshotStore interface {
	CreateIfAbsent(ctx context.Context, userID uint, userName string, window weekwindow.Window, totalHours float64) (*models.WeeklyHoursHistory, bool, error)
}

type Options struct {
	Schedule           string        // cron выражение из 5 полей
	PersistenceTimeout time.Duration // таймаут каждого обращения к хранилищу
	Clock              func() time.Time
}

// Scheduler - недельное архивирование часов: по cron или вручную.
// Запуски внутри процесса выполняются строго по одному. Между несколькими
// процессами координации нет: повторную запись отсекает unique индекс архива.
type Scheduler struct {
	users     UserStore
	hours     HourSummer
	snapshots SnapshotStore
	calc      *weekwindow.Calculator
	logger    *logrus.Logger

	schedule     string
	parsed       cron.Schedule
	timeout      time.Duration
	now          func() time.Time
	runMu        sync.Mutex
	stateMu      sync.RWMutex
	cron         *cron.Cron
	lastReport   *Report
	afterRunHook []func(*Report)
}

func NewScheduler(
	users UserStore,
	hours HourSummer,
	snapshots SnapshotStore,
	calc *weekwindow.Calculator,
	opts Options,
	log *logrus.Logger,
) (*Scheduler, error) {
	parsed, err := cron.ParseStandard(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid rollover schedule %q: %w", opts.Schedule, err)
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		users:     users,
		hours:     hours,
		snapshots: snapshots,
		calc:      calc,
		logger:    logger.OrDefault(log),
		schedule:  opts.Schedule,
		parsed:    parsed,
		timeout:   opts.PersistenceTimeout,
		now:       now,
	}, nil
}

// OnRun регистрирует функцию, вызываемую после каждого запуска
func (s *Scheduler) OnRun(fn func(*Report)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.afterRunHook = append(s.afterRunHook, fn)
}

// Start запускает cron таймер. Повторный вызов ничего не делает.
func (s *Scheduler) Start() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLocation(s.calc.Location()),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(s.schedule, s.scheduledRun); err != nil {
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}

	c.Start()
	s.cron = c

	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"timezone": s.calc.Location().String(),
	}).Info("Rollover scheduler started")

	return nil
}

// Stop останавливает таймер и ждет завершения текущего запуска
func (s *Scheduler) Stop() {
	s.stateMu.Lock()
	c := s.cron
	s.cron = nil
	s.stateMu.Unlock()

	if c == nil {
		return
	}

	<-c.Stop().Done()
	s.logger.Info("Rollover scheduler stopped")
}

func (s *Scheduler) scheduledRun() {
	if _, err := s.run(context.Background(), KindScheduled, s.now(), true); err != nil {
		s.logger.WithError(err).Error("Scheduled rollover failed")
	}
}

// PerformRollover архивирует неделю, содержащую reference, и обнуляет счетчики
func (s *Scheduler) PerformRollover(ctx context.Context, reference time.Time) (*Report, error) {
	return s.run(ctx, KindManual, reference, true)
}

// ManualReset - PerformRollover для текущего момента
func (s *Scheduler) ManualReset(ctx context.Context) (*Report, error) {
	return s.PerformRollover(ctx, s.now())
}

// CreateHistoryForWeek дозаписывает архив уже закончившейся недели, содержащей weekStart, не трогая счетчики.
func (s *Scheduler) CreateHistoryForWeek(ctx context.Context, weekStart time.Time) (*Report, error) {
	window := s.calc.WindowFor(weekStart)
	now := s.now()
	if window.Start.After(now) {
		return nil, apperr.Validation("week_start", "неделя %s еще не началась", window.Start.Format("2006-01-02"))
	}
	if window.End.After(now) {
		return nil, apperr.Validation("week_start", "неделя %s еще не закончилась", window.Start.Format("2006-01-02"))
	}
	return s.run(ctx, KindBackfill, weekStart, false)
}

func (s *Scheduler) run(ctx context.Context, kind string, reference time.Time, reset bool) (*Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	window := s.calc.WindowFor(reference)
	report := newReport(kind, reference, window, s.now())

	log := s.logger.WithFields(logrus.Fields{
		"run_id":     report.RunID.String(),
		"kind":       kind,
		"week_start": window.Start.Format(time.RFC3339),
	})
	log.Info("Rollover started")

	listCtx, cancel := s.callContext(ctx)
	users, err := s.users.ListActive(listCtx)
	cancel()
	if err != nil {
		log.WithError(err).Error("Failed to list active users")
		return nil, err
	}

	for _, user := range users {
		result, err := s.processUser(ctx, user, window, reset)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Rollover failed for user")
			report.Failures = append(report.Failures, Failure{
				UserID:   user.ID,
				UserName: user.Name,
				Error:    err.Error(),
			})
			continue
		}

		if result == nil {
			report.Skipped++
			continue
		}
		report.Archived = append(report.Archived, *result)
	}

	report.FinishedAt = s.now()

	log.WithFields(logrus.Fields{
		"archived": len(report.Archived),
		"skipped":  report.Skipped,
		"failed":   len(report.Failures),
		"hours":    report.TotalHours(),
	}).Info("Rollover finished")

	s.stateMu.Lock()
	s.lastReport = report
	hooks := append([]func(*Report){}, s.afterRunHook...)
	s.stateMu.Unlock()

	for _, hook := range hooks {
		hook(report)
	}

	return report, nil
}

// processUser - единица работы по одному пользователю. Сбой здесь не прерывает запуск.
func (s *Scheduler) processUser(ctx context.Context, user *models.User, window weekwindow.Window, reset bool) (*Result, error) {
	sumCtx, cancel := s.callContext(ctx)
	hours, err := s.hours.SumHours(sumCtx, user.ID, window, nil)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("aggregate hours: %w", err)
	}

	createCtx, cancel := s.callContext(ctx)
	row, created, err := s.snapshots.CreateIfAbsent(createCtx, user.ID, user.Name, window, hours)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("archive week: %w", err)
	}

	if reset {
		resetCtx, cancel := s.callContext(ctx)
		err := s.users.ResetCurrentWeekHours(resetCtx, user.ID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("reset current week hours: %w", err)
		}
	}

	if !created {
		return nil, nil
	}

	return &Result{UserID: user.ID, UserName: user.Name, HoursArchived: row.TotalHours}, nil
}

func (s *Scheduler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Status - состояние планировщика
type Status struct {
	Running     bool      `json:"running"`
	Schedule    string    `json:"schedule"`
	Description string    `json:"description"`
	Timezone    string    `json:"timezone"`
	WeekStart   string    `json:"week_start_day"`
	NextRun     time.Time `json:"next_run"`
	LastRun     *Summary  `json:"last_run,omitempty"`
}

func (s *Scheduler) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	loc := s.calc.Location()
	status := Status{
		Running:     s.cron != nil,
		Schedule:    s.schedule,
		Description: Describe(s.schedule, loc),
		Timezone:    loc.String(),
		WeekStart:   s.calc.WeekStart().String(),
		NextRun:     s.parsed.Next(s.now().In(loc)),
	}
	if s.lastReport != nil {
		status.LastRun = s.lastReport.Summary()
	}
	return status
}

// LastReport возвращает отчет последнего запуска или nil
func (s *Scheduler) LastReport() *Report {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastReport
}
