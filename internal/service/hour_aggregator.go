package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"lab-hours/internal/logger"
	"lab-hours/pkg/weekwindow"
)

// DurationSummer - источник сумм длительностей завершенных сессий
type DurationSummer interface {
	SumCompletedDuration(ctx context.Context, userID uint, from, to time.Time, projectID *uint) (int64, error)
}

// HourAggregator суммирует завершенные сессии пользователя в окне недели.
// Открытые сессии не учитываются, сессия относится к окну по времени начала.
type HourAggregator struct {
	sessions DurationSummer
	logger   *logrus.Logger
}

func NewHourAggregator(sessions DurationSummer, log *logrus.Logger) *HourAggregator {
	return &HourAggregator{sessions: sessions, logger: logger.OrDefault(log)}
}

// SumDuration возвращает сумму в секундах; 0 если сессий нет
func (a *HourAggregator) SumDuration(ctx context.Context, userID uint, window weekwindow.Window, projectID *uint) (int64, error) {
	seconds, err := a.sessions.SumCompletedDuration(ctx, userID, window.Start, window.End, projectID)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"week_start": window.Start.Format(time.RFC3339),
		}).Error("Failed to aggregate hours")
		return 0, err
	}
	return seconds, nil
}

func (a *HourAggregator) SumHours(ctx context.Context, userID uint, window weekwindow.Window, projectID *uint) (float64, error) {
	seconds, err := a.SumDuration(ctx, userID, window, projectID)
	if err != nil {
		return 0, err
	}
	return float64(seconds) / 3600, nil
}
