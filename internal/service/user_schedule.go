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

// ScheduleInput - данные записи графика от клиента
type ScheduleInput struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type UserScheduleService struct {
	scheduleRepo repository.UserScheduleRepository
	userRepo     repository.UserRepository
	logger       *logrus.Logger
}

func NewUserScheduleService(
	scheduleRepo repository.UserScheduleRepository,
	userRepo repository.UserRepository,
	log *logrus.Logger,
) *UserScheduleService {
	return &UserScheduleService{
		scheduleRepo: scheduleRepo,
		userRepo:     userRepo,
		logger:       logger.OrDefault(log),
	}
}

// Create добавляет запись графика после проверки бюджета часов
func (s *UserScheduleService) Create(ctx context.Context, userID uint, input ScheduleInput) (*models.UserSchedule, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.scheduleRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := &models.UserSchedule{
		UserID:    userID,
		DayOfWeek: input.DayOfWeek,
		StartTime: strings.TrimSpace(input.StartTime),
		EndTime:   strings.TrimSpace(input.EndTime),
	}

	if err := ValidateScheduleEntry(entry, existing, user.WeekHours, nil); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"budget":  user.WeekHours,
		}).WithError(err).Warn("Schedule entry rejected")
		return nil, err
	}

	if err := s.scheduleRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Update заменяет запись графика; бюджет проверяется без учета ее прежней длительности
func (s *UserScheduleService) Update(ctx context.Context, userID, entryID uint, input ScheduleInput) (*models.UserSchedule, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	existing, err := s.scheduleRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := *entry
	updated.DayOfWeek = input.DayOfWeek
	updated.StartTime = strings.TrimSpace(input.StartTime)
	updated.EndTime = strings.TrimSpace(input.EndTime)

	if err := ValidateScheduleEntry(&updated, existing, user.WeekHours, &entry.ID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"entry_id": entryID,
			"budget":   user.WeekHours,
		}).WithError(err).Warn("Schedule update rejected")
		return nil, err
	}

	if err := s.scheduleRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *UserScheduleService) Delete(ctx context.Context, userID, entryID uint) error {
	if _, err := s.ownedEntry(ctx, userID, entryID); err != nil {
		return err
	}
	return s.scheduleRepo.Delete(ctx, entryID)
}

func (s *UserScheduleService) List(ctx context.Context, userID uint) ([]*models.UserSchedule, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetByUserID(ctx, userID)
}

// PlannedHours возвращает сумму часов графика и недельный бюджет пользователя
func (s *UserScheduleService) PlannedHours(ctx context.Context, userID uint) (float64, float64, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	entries, err := s.scheduleRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	minutes := 0
	for _, entry := range entries {
		d, err := entry.DurationMinutes()
		if err != nil {
			s.logger.WithError(err).WithField("entry_id", entry.ID).Warn("Skipping malformed schedule entry")
			continue
		}
		minutes += d
	}

	return float64(minutes) / 60, user.WeekHours, nil
}

// FormatSchedule форматирует график для вывода в чат
func (s *UserScheduleService) FormatSchedule(entries []*models.UserSchedule, planned, budget float64) string {
	if len(entries) == 0 {
		return "📭 График пуст."
	}

	var lines []string
	lines = append(lines, "📅 Ваш график:")
	lines = append(lines, "")
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("• %s %s-%s", entry.DayName(), entry.StartTime, entry.EndTime))
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("⏳ Запланировано %s из %s", models.FormatHours(planned), models.FormatHours(budget)))

	return strings.Join(lines, "\n")
}

func (s *UserScheduleService) user(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("пользователь", userID)
	}
	return user, nil
}

func (s *UserScheduleService) ownedEntry(ctx context.Context, userID, entryID uint) (*models.UserSchedule, error) {
	entry, err := s.scheduleRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.UserID != userID {
		return nil, apperr.NotFound("запись графика", entryID)
	}
	return entry, nil
}
