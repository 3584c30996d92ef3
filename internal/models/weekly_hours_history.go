package models

import (
	"fmt"
	"time"
)

// WeeklyHoursHistory - архив отработанных часов за неделю.
// Не более одной записи на (user_id, week_start), записи с нулем часов не создаются.
type WeeklyHoursHistory struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_weekly_hours_user_week,priority:1" json:"user_id"`
	UserName   string    `gorm:"not null" json:"user_name"`
	WeekStart  time.Time `gorm:"not null;uniqueIndex:idx_weekly_hours_user_week,priority:2;index" json:"week_start"`
	WeekEnd    time.Time `gorm:"not null" json:"week_end"`
	TotalHours float64   `gorm:"not null;check:total_hours > 0" json:"total_hours"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WeeklyHoursHistory) TableName() string {
	return "weekly_hours_history"
}

// IsValid проверяет валидность данных
func (h *WeeklyHoursHistory) IsValid() bool {
	if h.UserID == 0 {
		return false
	}
	if h.WeekStart.IsZero() || !h.WeekEnd.After(h.WeekStart) {
		return false
	}
	return h.TotalHours > 0
}

// FormatHours форматирует часы для отображения
func (h *WeeklyHoursHistory) FormatHours() string {
	return FormatHours(h.TotalHours)
}

// FormatHours переводит дробные часы в "Nч Mм"
func FormatHours(hours float64) string {
	totalMinutes := int(hours*60 + 0.5)
	h := totalMinutes / 60
	m := totalMinutes % 60

	if m == 0 {
		return fmt.Sprintf("%dч", h)
	}
	return fmt.Sprintf("%dч %dм", h, m)
}
