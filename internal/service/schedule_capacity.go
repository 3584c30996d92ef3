package service

import (
	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
)

// ValidateScheduleEntry проверяет запись графика и недельный бюджет часов.
// excludingID исключает из суммы запись, которую заменяет entry (при обновлении).
// Проверка выполняется только при записи: последующее изменение бюджета
// существующие записи не перепроверяет.
func ValidateScheduleEntry(entry *models.UserSchedule, existing []*models.UserSchedule, budgetHours float64, excludingID *uint) error {
	start, err := models.ParseClock(entry.StartTime)
	if err != nil {
		return apperr.Validation("start_time", "%s", err.Error())
	}
	end, err := models.ParseClock(entry.EndTime)
	if err != nil {
		return apperr.Validation("end_time", "%s", err.Error())
	}
	if end <= start {
		return apperr.Validation("end_time", "время окончания должно быть позже времени начала")
	}

	if entry.DayOfWeek < 0 || entry.DayOfWeek > 6 {
		return apperr.Validation("day_of_week", "день недели должен быть от 0 (воскресенье) до 6 (суббота)")
	}

	totalMinutes := end - start
	for _, other := range existing {
		if excludingID != nil && other.ID == *excludingID {
			continue
		}
		minutes, err := other.DurationMinutes()
		if err != nil {
			return apperr.Validation("schedule", "некорректная запись графика %d: %s", other.ID, err.Error())
		}
		totalMinutes += minutes
	}

	requested := float64(totalMinutes) / 60
	if requested > budgetHours {
		return &apperr.CapacityExceededError{Requested: requested, Budget: budgetHours}
	}

	return nil
}
