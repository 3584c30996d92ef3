package models

import (
	"fmt"
	"time"
)

type WorkSession struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	UserID    uint   `gorm:"not null;index:idx_work_sessions_user_status" json:"user_id"`
	UserName  string `gorm:"not null" json:"user_name"` // снимок имени на момент старта
	ProjectID *uint  `gorm:"index" json:"project_id,omitempty"`

	StartTime       time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `gorm:"column:duration" json:"duration_seconds"`

	Activity string `json:"activity,omitempty"`
	Location string `json:"location,omitempty"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index:idx_work_sessions_user_status" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WorkSession) TableName() string {
	return "work_sessions"
}

// Статусы рабочих сессий
const (
	SessionActive    = "active"    // Идет работа
	SessionPaused    = "paused"    // Пауза
	SessionCompleted = "completed" // Сессия закрыта, длительность зафиксирована
)

// IsOpen проверяет, что сессия еще не закрыта (active или paused)
func (ws *WorkSession) IsOpen() bool {
	return ws.Status == SessionActive || ws.Status == SessionPaused
}

// Complete закрывает сессию и фиксирует длительность. Повторный вызов - ошибка.
func (ws *WorkSession) Complete(endTime time.Time) error {
	if ws.EndTime != nil || ws.Status == SessionCompleted {
		return fmt.Errorf("session %d already completed", ws.ID)
	}

	seconds := int64(endTime.Sub(ws.StartTime) / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	ws.EndTime = &endTime
	ws.DurationSeconds = &seconds
	ws.Status = SessionCompleted
	return nil
}

// Duration возвращает зафиксированную длительность (0 для открытых сессий)
func (ws *WorkSession) Duration() time.Duration {
	if ws.DurationSeconds == nil {
		return 0
	}
	return time.Duration(*ws.DurationSeconds) * time.Second
}

// FormatDuration возвращает продолжительность работы как строку
func (ws *WorkSession) FormatDuration() string {
	if ws.DurationSeconds == nil {
		return "еще в работе"
	}

	d := ws.Duration()
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if minutes == 0 {
		return fmt.Sprintf("%dч", hours)
	}
	return fmt.Sprintf("%dч %dм", hours, minutes)
}

// IsValid проверяет валидность данных
func (ws *WorkSession) IsValid() bool {
	if ws.UserID == 0 {
		return false
	}
	if ws.StartTime.IsZero() {
		return false
	}
	switch ws.Status {
	case SessionActive, SessionPaused:
		return ws.EndTime == nil && ws.DurationSeconds == nil
	case SessionCompleted:
		return ws.EndTime != nil && ws.DurationSeconds != nil && !ws.EndTime.Before(ws.StartTime)
	default:
		return false
	}
}
