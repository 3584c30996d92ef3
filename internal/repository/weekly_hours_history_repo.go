package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
)

// ErrDuplicateWeek - запись за эту неделю уже создана (сработал unique индекс)
var ErrDuplicateWeek = errors.New("weekly history already exists")

// HistoryFilter - фильтр выборки архива. Нулевые значения не ограничивают выборку.
type HistoryFilter struct {
	UserID *uint
	From   *time.Time
	To     *time.Time
	Limit  int
}

type WeeklyHoursHistoryRepository interface {
	Create(ctx context.Context, history *models.WeeklyHoursHistory) error
	GetByUserAndWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyHoursHistory, error)
	List(ctx context.Context, filter HistoryFilter) ([]*models.WeeklyHoursHistory, error)
}

type GormWeeklyHoursHistoryRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWeeklyHoursHistoryRepository(db *gorm.DB, log *logrus.Logger) (*GormWeeklyHoursHistoryRepository, error) {
	log = logger.OrDefault(log)

	if err := db.AutoMigrate(&models.WeeklyHoursHistory{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate weekly_hours_history table")
		return nil, err
	}

	return &GormWeeklyHoursHistoryRepository{db: db, logger: log}, nil
}

// Create вставляет запись архива. Повтор по (user_id, week_start) -> ErrDuplicateWeek.
func (r *GormWeeklyHoursHistoryRepository) Create(ctx context.Context, history *models.WeeklyHoursHistory) error {
	history.WeekStart = history.WeekStart.UTC()
	history.WeekEnd = history.WeekEnd.UTC()

	if !history.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"user_id":     history.UserID,
			"total_hours": history.TotalHours,
		}).Warn("Invalid weekly history data")
		return apperr.Validation("history", "некорректные данные недельного архива")
	}

	err := r.db.WithContext(ctx).Create(history).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.logger.WithFields(logrus.Fields{
			"user_id":    history.UserID,
			"week_start": history.WeekStart.Format(time.RFC3339),
		}).Warn("Weekly history already exists")
		return ErrDuplicateWeek
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to create weekly history")
		return apperr.Persistence("create weekly history", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":          history.ID,
		"user_id":     history.UserID,
		"week_start":  history.WeekStart.Format(time.RFC3339),
		"total_hours": history.TotalHours,
	}).Info("Weekly history created successfully")

	return nil
}

func (r *GormWeeklyHoursHistoryRepository) GetByUserAndWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyHoursHistory, error) {
	var history models.WeeklyHoursHistory
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart.UTC()).
		First(&history)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get weekly history")
		return nil, apperr.Persistence("get weekly history", result.Error)
	}

	return &history, nil
}

// List возвращает записи архива, новые недели первыми
func (r *GormWeeklyHoursHistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]*models.WeeklyHoursHistory, error) {
	var rows []*models.WeeklyHoursHistory

	query := r.db.WithContext(ctx).Model(&models.WeeklyHoursHistory{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("week_start >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("week_start < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("week_start DESC, user_id ASC").Find(&rows).Error; err != nil {
		r.logger.WithError(err).Error("Failed to list weekly history")
		return nil, apperr.Persistence("list weekly history", err)
	}

	r.logger.WithField("count", len(rows)).Debug("Retrieved weekly history")
	return rows, nil
}
