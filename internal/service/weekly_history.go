package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
	"lab-hours/internal/repository"
	"lab-hours/pkg/weekwindow"
)

// WeeklyHistoryService - идемпотентный архив недельных часов.
// На (пользователь, начало недели) создается не более одной записи.
type WeeklyHistoryService struct {
	repo   repository.WeeklyHoursHistoryRepository
	logger *logrus.Logger
}

func NewWeeklyHistoryService(repo repository.WeeklyHoursHistoryRepository, log *logrus.Logger) *WeeklyHistoryService {
	return &WeeklyHistoryService{repo: repo, logger: logger.OrDefault(log)}
}

// CreateIfAbsent создает запись, только если ее еще нет и часов больше нуля.
// created=false означает, что запись уже была (она возвращается) или часов ноль (nil).
func (s *WeeklyHistoryService) CreateIfAbsent(ctx context.Context, userID uint, userName string, window weekwindow.Window, totalHours float64) (*models.WeeklyHoursHistory, bool, error) {
	fields := logrus.Fields{
		"user_id":    userID,
		"week_start": window.Start.Format(time.RFC3339),
		"hours":      totalHours,
	}

	existing, err := s.repo.GetByUserAndWeek(ctx, userID, window.Start)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logger.WithFields(fields).Debug("Weekly history already archived")
		return existing, false, nil
	}

	if totalHours <= 0 {
		s.logger.WithFields(fields).Debug("No hours to archive")
		return nil, false, nil
	}

	utc := window.UTC()
	row := &models.WeeklyHoursHistory{
		UserID:     userID,
		UserName:   userName,
		WeekStart:  utc.Start,
		WeekEnd:    utc.End,
		TotalHours: totalHours,
	}

	createErr := s.repo.Create(ctx, row)
	if createErr == nil {
		s.logger.WithFields(fields).Info("Weekly history archived")
		return row, true, nil
	}

	// Параллельный запуск успел вставить запись - возвращаем ее
	winner, err := s.repo.GetByUserAndWeek(ctx, userID, window.Start)
	if err == nil && winner != nil {
		s.logger.WithFields(fields).Warn("Weekly history created concurrently")
		return winner, false, nil
	}

	return nil, false, createErr
}

// Get возвращает архив пользователя за неделю, начинающуюся в weekStart
func (s *WeeklyHistoryService) Get(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyHoursHistory, error) {
	row, err := s.repo.GetByUserAndWeek(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFound("архив недели", fmt.Sprintf("%d/%s", userID, weekStart.Format("2006-01-02")))
	}
	return row, nil
}

func (s *WeeklyHistoryService) List(ctx context.Context, filter repository.HistoryFilter) ([]*models.WeeklyHoursHistory, error) {
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, apperr.Validation("to", "конец периода должен быть позже начала")
	}
	if filter.Limit < 0 {
		return nil, apperr.Validation("limit", "лимит не может быть отрицательным")
	}
	return s.repo.List(ctx, filter)
}

// FormatHistory форматирует архив для вывода в чат
func (s *WeeklyHistoryService) FormatHistory(rows []*models.WeeklyHoursHistory, loc *time.Location) string {
	if len(rows) == 0 {
		return "📭 Архив за этот период пуст."
	}

	var lines []string
	lines = append(lines, "📚 Архив недельных часов:")
	lines = append(lines, "")

	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("• %s, неделя с %s: %s",
			row.UserName,
			row.WeekStart.In(loc).Format("02.01.2006"),
			row.FormatHours()))
	}

	return strings.Join(lines, "\n")
}
