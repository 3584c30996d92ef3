package repository

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
)

type UserScheduleRepository interface {
	Create(ctx context.Context, entry *models.UserSchedule) error
	Update(ctx context.Context, entry *models.UserSchedule) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.UserSchedule, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.UserSchedule, error)
}

type GormUserScheduleRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormUserScheduleRepository(db *gorm.DB, log *logrus.Logger) (*GormUserScheduleRepository, error) {
	log = logger.OrDefault(log)

	if err := db.AutoMigrate(&models.UserSchedule{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate user_schedules table")
		return nil, err
	}

	return &GormUserScheduleRepository{db: db, logger: log}, nil
}

func (r *GormUserScheduleRepository) Create(ctx context.Context, entry *models.UserSchedule) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create schedule entry")
		return apperr.Persistence("create schedule entry", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":          entry.ID,
		"user_id":     entry.UserID,
		"day_of_week": entry.DayOfWeek,
		"start_time":  entry.StartTime,
		"end_time":    entry.EndTime,
	}).Info("Schedule entry created successfully")

	return nil
}

func (r *GormUserScheduleRepository) Update(ctx context.Context, entry *models.UserSchedule) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		r.logger.WithError(err).Error("Failed to update schedule entry")
		return apperr.Persistence("update schedule entry", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":      entry.ID,
		"user_id": entry.UserID,
	}).Info("Schedule entry updated successfully")

	return nil
}

func (r *GormUserScheduleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.UserSchedule{}, id)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete schedule entry")
		return apperr.Persistence("delete schedule entry", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.NotFound("запись графика", id)
	}

	r.logger.WithField("id", id).Info("Schedule entry deleted successfully")
	return nil
}

func (r *GormUserScheduleRepository) GetByID(ctx context.Context, id uint) (*models.UserSchedule, error) {
	var entry models.UserSchedule
	result := r.db.WithContext(ctx).First(&entry, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get schedule entry by ID")
		return nil, apperr.Persistence("get schedule entry", result.Error)
	}

	return &entry, nil
}

func (r *GormUserScheduleRepository) GetByUserID(ctx context.Context, userID uint) ([]*models.UserSchedule, error) {
	var entries []*models.UserSchedule
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day_of_week ASC, start_time ASC").
		Find(&entries)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get schedule entries")
		return nil, apperr.Persistence("list schedule entries", result.Error)
	}

	return entries, nil
}
