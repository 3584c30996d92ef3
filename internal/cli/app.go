package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lab-hours/internal/config"
	"lab-hours/internal/db"
	"lab-hours/internal/repository"
	"lab-hours/internal/rollover"
	"lab-hours/internal/service"
	"lab-hours/pkg/weekwindow"
)

// App - собранные зависимости процесса
type App struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *gorm.DB

	Calculator *weekwindow.Calculator
	Users      *service.UserService
	Sessions   *service.WorkSessionService
	Hours      *service.HourAggregator
	History    *service.WeeklyHistoryService
	Schedules  *service.UserScheduleService
	Scheduler  *rollover.Scheduler
}

// NewApp подключается к БД и собирает репозитории, сервисы и планировщик
func NewApp(cfg *config.Config, log *logrus.Logger) (*App, error) {
	calc, err := cfg.Calculator()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}

	app, err := build(cfg, database, calc, log)
	if err != nil {
		_ = db.Close(database)
		return nil, err
	}
	return app, nil
}

func build(cfg *config.Config, database *gorm.DB, calc *weekwindow.Calculator, log *logrus.Logger) (*App, error) {
	userRepo, err := repository.NewGormUserRepository(database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create user repository: %w", err)
	}

	sessionRepo, err := repository.NewGormWorkSessionRepository(database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create work session repository: %w", err)
	}

	historyRepo, err := repository.NewGormWeeklyHoursHistoryRepository(database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create weekly history repository: %w", err)
	}

	scheduleRepo, err := repository.NewGormUserScheduleRepository(database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create user schedule repository: %w", err)
	}

	users := service.NewUserService(userRepo, log)
	hours := service.NewHourAggregator(sessionRepo, log)
	history := service.NewWeeklyHistoryService(historyRepo, log)

	scheduler, err := rollover.NewScheduler(users, hours, history, calc, rollover.Options{
		Schedule:           cfg.Rollover.Schedule,
		PersistenceTimeout: cfg.Rollover.PersistenceTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		DB:         database,
		Calculator: calc,
		Users:      users,
		Sessions:   service.NewWorkSessionService(sessionRepo, userRepo, log),
		Hours:      hours,
		History:    history,
		Schedules:  service.NewUserScheduleService(scheduleRepo, userRepo, log),
		Scheduler:  scheduler,
	}, nil
}

// Close останавливает планировщик и закрывает БД
func (a *App) Close() {
	a.Scheduler.Stop()
	if err := db.Close(a.DB); err != nil {
		a.Logger.WithError(err).Error("Failed to close database")
	}
}
