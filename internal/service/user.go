package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
	"lab-hours/internal/repository"
)

type UserService struct {
	repo   repository.UserRepository
	logger *logrus.Logger
}

func NewUserService(repo repository.UserRepository, log *logrus.Logger) *UserService {
	return &UserService{repo: repo, logger: logger.OrDefault(log)}
}

// Register создает пользователя, привязанного к чату, с ролью client по умолчанию.
// Если пользователь уже есть, возвращает его.
func (s *UserService) Register(ctx context.Context, chatID int64, name string, weekHours float64) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name", "имя не может быть пустым")
	}
	if weekHours < 0 {
		return nil, apperr.Validation("week_hours", "недельный лимит не может быть отрицательным")
	}

	existing, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &models.User{
		Name:      name,
		ChatID:    &chatID,
		WeekHours: weekHours,
		Status:    models.UserStatusActive,
		Role:      models.RoleClient,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"chat_id": chatID,
	}).Info("User registered")

	return user, nil
}

// Get возвращает пользователя по ID или NotFoundError
func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("пользователь", userID)
	}
	return user, nil
}

// GetByChat возвращает пользователя по chatID или NotFoundError
func (s *UserService) GetByChat(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("пользователь", chatID)
	}
	return user, nil
}

func (s *UserService) ListActive(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListActive(ctx)
}

// ListAll возвращает всех пользователей, включая неактивных
func (s *UserService) ListAll(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAll(ctx)
}

// FormatUsers форматирует список пользователей для администратора
func (s *UserService) FormatUsers(users []*models.User) string {
	if len(users) == 0 {
		return "📭 Пользователей пока нет."
	}

	lines := []string{fmt.Sprintf("👥 Пользователи (%d):", len(users)), ""}
	for _, u := range users {
		mark := "🟢"
		if !u.IsActive() {
			mark = "⚪️"
		}
		if u.IsAdmin() {
			mark += "👑"
		}
		lines = append(lines, fmt.Sprintf("%s %d. %s: %s из %s",
			mark, u.ID, u.Name,
			models.FormatHours(u.CurrentWeekHours),
			models.FormatHours(u.WeekHours)))
	}

	return strings.Join(lines, "\n")
}

// RecordWorkedHours прибавляет часы закрытой сессии к кешу текущей недели.
// Кеш нужен только для отображения, источник истины - завершенные сессии.
func (s *UserService) RecordWorkedHours(ctx context.Context, session *models.WorkSession) {
	hours := session.Duration().Hours()
	if hours <= 0 {
		return
	}
	if err := s.repo.AddCurrentWeekHours(ctx, session.UserID, hours); err != nil {
		s.logger.WithError(err).WithField("user_id", session.UserID).Warn("Failed to update current week hours")
	}
}

// ResetCurrentWeekHours обнуляет счетчик недели (вызывается при архивировании)
func (s *UserService) ResetCurrentWeekHours(ctx context.Context, userID uint) error {
	return s.repo.ResetCurrentWeekHours(ctx, userID)
}

// IsAdmin проверяет, является ли пользователь администратором
func (s *UserService) IsAdmin(ctx context.Context, chatID int64) (bool, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return false, err
	}

	return user != nil && user.IsAdmin(), nil
}

// InitializeAdmin инициализирует администратора из конфига
func (s *UserService) InitializeAdmin(ctx context.Context, adminChatID int64) error {
	if adminChatID == 0 {
		return nil // Админ не задан в конфиге
	}

	existingUser, err := s.repo.GetByChatID(ctx, adminChatID)
	if err != nil {
		return err
	}

	if existingUser != nil {
		return s.repo.UpdateRole(ctx, existingUser.ID, models.Role(models.RoleAdmin))
	}

	adminUser := &models.User{
		Name:   "Администратор",
		ChatID: &adminChatID,
		Status: models.UserStatusActive,
		Role:   models.RoleAdmin,
	}

	return s.repo.Create(ctx, adminUser)
}

// FormatUserInfo форматирует информацию о пользователе для вывода
func (s *UserService) FormatUserInfo(user *models.User) string {
	roleEmoji := "👤"
	if user.IsAdmin() {
		roleEmoji = "👑"
	}

	lines := []string{
		"👤 Профиль пользователя:",
		"",
		fmt.Sprintf("🆔 ID: %d", user.ID),
		fmt.Sprintf("👨‍💼 Имя: %s", user.Name),
		fmt.Sprintf("%s Роль: %s", roleEmoji, user.Role),
		fmt.Sprintf("⏳ Недельный лимит: %s", models.FormatHours(user.WeekHours)),
		fmt.Sprintf("📈 Отработано за неделю: %s", models.FormatHours(user.CurrentWeekHours)),
	}

	return strings.Join(lines, "\n")
}
