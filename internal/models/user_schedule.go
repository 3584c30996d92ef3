package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserSchedule - регулярная недельная запись графика пользователя
type UserSchedule struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	DayOfWeek int       `gorm:"not null;check:day_of_week >= 0 AND day_of_week <= 6" json:"day_of_week"` // 0 - воскресенье
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"`                              // "HH:MM"
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end_time"`                                // "HH:MM"
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserSchedule) TableName() string {
	return "user_schedules"
}

// DurationMinutes возвращает длительность записи в минутах
func (us *UserSchedule) DurationMinutes() (int, error) {
	start, err := ParseClock(us.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := ParseClock(us.EndTime)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// DayName возвращает название дня недели
func (us *UserSchedule) DayName() string {
	if us.DayOfWeek < 0 || us.DayOfWeek > 6 {
		return "?"
	}
	return time.Weekday(us.DayOfWeek).String()
}

// ParseClock парсит время из строки "8:30" в минуты от полуночи
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("неверный формат времени %q. Используйте ЧЧ:ММ", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("неверное количество часов в %q. Должно быть между 0 и 24", value)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("неверное количество минут в %q. Должно быть между 0 и 59", value)
	}

	// 24:00 допустим только как конец дня
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("неверное время %q", value)
	}

	return hours*60 + minutes, nil
}
