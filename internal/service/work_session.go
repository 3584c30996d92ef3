package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"lab-hours/internal/apperr"
	"lab-hours/internal/logger"
	"lab-hours/internal/models"
	"lab-hours/internal/repository"
)

// WorkSessionService ведет рабочие сессии: старт, пауза, продолжение, остановка.
// Проверка "есть ли открытая сессия" и создание новой не атомарны: при
// одновременных стартах может появиться вторая открытая сессия, ее закроет
// следующий вызов Start.
type WorkSessionService struct {
	sessionRepo repository.WorkSessionRepository
	userRepo    repository.UserRepository
	logger      *logrus.Logger
	now         func() time.Time
}

func NewWorkSessionService(
	sessionRepo repository.WorkSessionRepository,
	userRepo repository.UserRepository,
	log *logrus.Logger,
) *WorkSessionService {
	return &WorkSessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		logger:      logger.OrDefault(log),
		now:         time.Now,
	}
}

// SetClock подменяет источник текущего времени
func (s *WorkSessionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *WorkSessionService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Start открывает сессию. Если у пользователя уже есть открытая (active или paused)
// сессия, она возвращается без изменений.
func (s *WorkSessionService) Start(ctx context.Context, userID uint, activity, location string, projectID *uint) (*models.WorkSession, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"activity": activity,
	}).Info("User starting work session")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("пользователь", userID)
	}

	open, err := s.sessionRepo.GetOpenByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(open) > 0 {
		s.closeDuplicates(ctx, open[1:])
		s.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"session_id": open[0].ID,
		}).Info("User already has open session")
		return open[0], nil
	}

	session := &models.WorkSession{
		UserID:    userID,
		UserName:  user.Name,
		ProjectID: projectID,
		StartTime: s.clock(),
		Activity:  activity,
		Location:  location,
		Status:    models.SessionActive,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":      session.ID,
		"user_id": userID,
	}).Info("User started work session")

	return session, nil
}

// closeDuplicates закрывает лишние открытые сессии нулевой длительностью,
// чтобы они не попали в недельную сумму
func (s *WorkSessionService) closeDuplicates(ctx context.Context, extra []*models.WorkSession) {
	for _, dup := range extra {
		if err := dup.Complete(dup.StartTime); err != nil {
			continue
		}
		if err := s.sessionRepo.Update(ctx, dup); err != nil {
			s.logger.WithError(err).WithField("session_id", dup.ID).Warn("Failed to close duplicate open session")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"session_id": dup.ID,
			"user_id":    dup.UserID,
		}).Warn("Closed duplicate open session")
	}
}

// Pause переводит active -> paused
func (s *WorkSessionService) Pause(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.SessionActive {
		return nil, apperr.InvalidState("pause", session.Status)
	}

	session.Status = models.SessionPaused
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	}).Info("Work session paused")

	return session, nil
}

// Resume переводит paused -> active
func (s *WorkSessionService) Resume(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.SessionPaused {
		return nil, apperr.InvalidState("resume", session.Status)
	}

	session.Status = models.SessionActive
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	}).Info("Work session resumed")

	return session, nil
}

// Stop закрывает сессию и фиксирует длительность. Длительность больше не пересчитывается.
// Кеш current_week_hours здесь не трогается, его ведет вызывающая сторона (UserService.RecordWorkedHours).
func (s *WorkSessionService) Stop(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsOpen() {
		return nil, apperr.InvalidState("stop", session.Status)
	}

	endTime := s.clock()
	if err := session.Complete(endTime); err != nil {
		return nil, apperr.InvalidState("stop", session.Status)
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":       sessionID,
		"user_id":          userID,
		"duration_seconds": *session.DurationSeconds,
	}).Info("Work session stopped")

	return session, nil
}

// Active возвращает открытую сессию пользователя или nil
func (s *WorkSessionService) Active(ctx context.Context, userID uint) (*models.WorkSession, error) {
	open, err := s.sessionRepo.GetOpenByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	return open[0], nil
}

// History возвращает последние сессии пользователя, новые первыми
func (s *WorkSessionService) History(ctx context.Context, userID uint, limit int) ([]*models.WorkSession, error) {
	return s.sessionRepo.GetByUserID(ctx, userID, limit)
}

func (s *WorkSessionService) ownedSession(ctx context.Context, userID, sessionID uint) (*models.WorkSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Чужая сессия неотличима от несуществующей
	if session == nil || session.UserID != userID {
		return nil, apperr.NotFound("сессия", sessionID)
	}

	return session, nil
}
