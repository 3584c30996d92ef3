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

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	ListActive(ctx context.Context) ([]*models.User, error)
	ResetCurrentWeekHours(ctx context.Context, userID uint) error
	AddCurrentWeekHours(ctx context.Context, userID uint, hours float64) error
	UpdateRole(ctx context.Context, userID uint, role models.Role) error
}

type GormUserRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormUserRepository(db *gorm.DB, log *logrus.Logger) (*GormUserRepository, error) {
	log = logger.OrDefault(log)

	// Автомиграция - создает таблицы если их нет
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate users table")
		return nil, err
	}

	return &GormUserRepository{db: db, logger: log}, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Name == "" {
		return apperr.Validation("name", "имя не может быть пустым")
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	if user.Role == "" {
		user.Role = models.RoleClient
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create user")
		return apperr.Persistence("create user", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":   user.ID,
		"name": user.Name,
	}).Info("User created successfully")
	return nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("User not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user by ID")
		return nil, apperr.Persistence("get user", result.Error)
	}

	return &user, nil
}

func (r *GormUserRepository) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user by chat ID")
		return nil, apperr.Persistence("get user by chat", result.Error)
	}

	return &user, nil
}

func (r *GormUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		r.logger.WithError(err).Error("Failed to get users")
		return nil, apperr.Persistence("list users", err)
	}

	return users, nil
}

func (r *GormUserRepository) ListActive(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).
		Where("status = ?", models.UserStatusActive).
		Order("id ASC").
		Find(&users)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get active users")
		return nil, apperr.Persistence("list active users", result.Error)
	}

	r.logger.WithField("count", len(users)).Debug("Retrieved active users")
	return users, nil
}

// ResetCurrentWeekHours обнуляет кешированный счетчик часов текущей недели
func (r *GormUserRepository) ResetCurrentWeekHours(ctx context.Context, userID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_week_hours", 0)

	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("user_id", userID).Error("Failed to reset current week hours")
		return apperr.Persistence("reset current week hours", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.NotFound("пользователь", userID)
	}

	return nil
}

// AddCurrentWeekHours прибавляет часы закрытой сессии к счетчику текущей недели
func (r *GormUserRepository) AddCurrentWeekHours(ctx context.Context, userID uint, hours float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_week_hours", gorm.Expr("current_week_hours + ?", hours))

	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("user_id", userID).Error("Failed to add current week hours")
		return apperr.Persistence("add current week hours", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.NotFound("пользователь", userID)
	}

	return nil
}

func (r *GormUserRepository) UpdateRole(ctx context.Context, userID uint, role models.Role) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", string(role))

	if result.Error != nil {
		return apperr.Persistence("update role", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.NotFound("пользователь", userID)
	}

	return nil
}
