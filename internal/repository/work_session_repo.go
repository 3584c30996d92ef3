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

type WorkSessionRepository interface {
	Create(ctx context.Context, session *models.WorkSession) error
	Update(ctx context.Context, session *models.WorkSession) error
	GetByID(ctx context.Context, id uint) (*models.WorkSession, error)
	GetOpenByUserID(ctx context.Context, userID uint) ([]*models.WorkSession, error)
	GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.WorkSession, error)
	SumCompletedDuration(ctx context.Context, userID uint, from, to time.Time, projectID *uint) (int64, error)
}

type GormWorkSessionRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkSessionRepository(db *gorm.DB, log *logrus.Logger) (*GormWorkSessionRepository, error) {
	log = logger.OrDefault(log)

	// Автомиграция
	if err := db.AutoMigrate(&models.WorkSession{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate work_sessions table")
		return nil, err
	}

	log.Debug("Work session repository initialized")

	return &GormWorkSessionRepository{
		db:     db,
		logger: log,
	}, nil
}

func (r *GormWorkSessionRepository) Create(ctx context.Context, session *models.WorkSession) error {
	r.logger.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"start_time": session.StartTime.Format(time.RFC3339),
	}).Info("Creating work session")

	if !session.IsValid() {
		r.logger.WithField("user_id", session.UserID).Warn("Invalid work session data")
		return apperr.Validation("session", "некорректные данные рабочей сессии")
	}

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create work session")
		return apperr.Persistence("create work session", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":      session.ID,
		"user_id": session.UserID,
		"status":  session.Status,
	}).Info("Work session created successfully")

	return nil
}

func (r *GormWorkSessionRepository) Update(ctx context.Context, session *models.WorkSession) error {
	if !session.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"id":      session.ID,
			"user_id": session.UserID,
		}).Warn("Invalid work session data for update")
		return apperr.Validation("session", "некорректные данные рабочей сессии")
	}

	result := r.db.WithContext(ctx).Save(session)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to update work session")
		return apperr.Persistence("update work session", result.Error)
	}

	r.logger.WithFields(logrus.Fields{
		"id":      session.ID,
		"user_id": session.UserID,
		"status":  session.Status,
	}).Info("Work session updated successfully")

	return nil
}

func (r *GormWorkSessionRepository) GetByID(ctx context.Context, id uint) (*models.WorkSession, error) {
	var session models.WorkSession
	result := r.db.WithContext(ctx).First(&session, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("Work session not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work session by ID")
		return nil, apperr.Persistence("get work session", result.Error)
	}

	return &session, nil
}

// GetOpenByUserID возвращает незакрытые сессии пользователя, старые первыми
func (r *GormWorkSessionRepository) GetOpenByUserID(ctx context.Context, userID uint) ([]*models.WorkSession, error) {
	var sessions []*models.WorkSession
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{models.SessionActive, models.SessionPaused}).
		Order("start_time ASC, id ASC").
		Find(&sessions)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get open work sessions")
		return nil, apperr.Persistence("get open work sessions", result.Error)
	}

	return sessions, nil
}

func (r *GormWorkSessionRepository) GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.WorkSession, error) {
	var sessions []*models.WorkSession

	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_time DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sessions).Error; err != nil {
		r.logger.WithError(err).Error("Failed to get work sessions by user ID")
		return nil, apperr.Persistence("list work sessions", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(sessions),
		"limit":   limit,
	}).Debug("Retrieved work sessions by user ID")

	return sessions, nil
}

// SumCompletedDuration суммирует длительность завершенных сессий,
// начавшихся в интервале [from, to)
func (r *GormWorkSessionRepository) SumCompletedDuration(ctx context.Context, userID uint, from, to time.Time, projectID *uint) (int64, error) {
	var data struct {
		Seconds int64
	}

	query := r.db.WithContext(ctx).Model(&models.WorkSession{}).
		Select("COALESCE(SUM(duration), 0) AS seconds").
		Where("user_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			userID,
			models.SessionCompleted,
			from.UTC(),
			to.UTC())

	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	if err := query.Scan(&data).Error; err != nil {
		r.logger.WithError(err).Error("Failed to sum work session durations")
		return 0, apperr.Persistence("sum work session durations", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    from.Format(time.RFC3339),
		"to":      to.Format(time.RFC3339),
		"seconds": data.Seconds,
	}).Debug("Summed completed work sessions")

	return data.Seconds, nil
}
