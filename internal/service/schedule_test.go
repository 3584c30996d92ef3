package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
)

// четыре записи по 9.5ч = 38ч
func fullWeek() []*models.UserSchedule {
	return []*models.UserSchedule{
		{ID: 1, DayOfWeek: 1, StartTime: "08:00", EndTime: "17:30"},
		{ID: 2, DayOfWeek: 2, StartTime: "08:00", EndTime: "17:30"},
		{ID: 3, DayOfWeek: 3, StartTime: "08:00", EndTime: "17:30"},
		{ID: 4, DayOfWeek: 4, StartTime: "08:00", EndTime: "17:30"},
	}
}

func TestValidateScheduleEntry_Capacity(t *testing.T) {
	existing := fullWeek()

	err := ValidateScheduleEntry(&models.UserSchedule{DayOfWeek: 5, StartTime: "09:00", EndTime: "12:00"}, existing, 40, nil)
	var capErr *apperr.CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 41.0, capErr.Requested)
	assert.Equal(t, 40.0, capErr.Budget)

	err = ValidateScheduleEntry(&models.UserSchedule{DayOfWeek: 5, StartTime: "09:00", EndTime: "11:00"}, existing, 40, nil)
	assert.NoError(t, err)
}

func TestValidateScheduleEntry_UpdateExcludesItself(t *testing.T) {
	// 33ч прочих записей + 5ч изменяемой
	existing := []*models.UserSchedule{
		{ID: 1, DayOfWeek: 1, StartTime: "08:00", EndTime: "19:00"},
		{ID: 2, DayOfWeek: 2, StartTime: "08:00", EndTime: "19:00"},
		{ID: 3, DayOfWeek: 3, StartTime: "08:00", EndTime: "19:00"},
		{ID: 4, DayOfWeek: 4, StartTime: "09:00", EndTime: "14:00"},
	}
	id := uint(4)

	resized := &models.UserSchedule{ID: 4, DayOfWeek: 4, StartTime: "09:00", EndTime: "16:00"}
	assert.NoError(t, ValidateScheduleEntry(resized, existing, 40, &id))

	err := ValidateScheduleEntry(resized, existing, 39, &id)
	var capErr *apperr.CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 40.0, capErr.Requested)
}

func TestValidateScheduleEntry_Validation(t *testing.T) {
	testCases := map[string]*models.UserSchedule{
		"end before start": {DayOfWeek: 1, StartTime: "12:00", EndTime: "09:00"},
		"empty interval":   {DayOfWeek: 1, StartTime: "12:00", EndTime: "12:00"},
		"bad clock":        {DayOfWeek: 1, StartTime: "9am", EndTime: "12:00"},
		"minutes overflow": {DayOfWeek: 1, StartTime: "09:00", EndTime: "12:75"},
		"day too large":    {DayOfWeek: 7, StartTime: "09:00", EndTime: "12:00"},
		"negative day":     {DayOfWeek: -1, StartTime: "09:00", EndTime: "12:00"},
	}

	for name, entry := range testCases {
		t.Run(name, func(t *testing.T) {
			err := ValidateScheduleEntry(entry, nil, 40, nil)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	assert.NoError(t, ValidateScheduleEntry(&models.UserSchedule{DayOfWeek: 0, StartTime: "20:00", EndTime: "24:00"}, nil, 4, nil))
}

func TestUserScheduleService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserScheduleService(env.schedules, env.users, env.log)
	user := env.createUser(t, "Alice", 10)

	first, err := svc.Create(ctx, user.ID, ScheduleInput{DayOfWeek: 1, StartTime: "09:00", EndTime: "14:00"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, user.ID, ScheduleInput{DayOfWeek: 2, StartTime: "09:00", EndTime: "13:00"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, user.ID, ScheduleInput{DayOfWeek: 3, StartTime: "09:00", EndTime: "11:00"})
	assert.True(t, apperr.IsCapacityExceeded(err))

	// 5ч -> 6ч: 4 + 6 = 10, в пределах бюджета
	updated, err := svc.Update(ctx, user.ID, first.ID, ScheduleInput{DayOfWeek: 1, StartTime: "08:00", EndTime: " 14:00 "})
	require.NoError(t, err)
	assert.Equal(t, "14:00", updated.EndTime)

	_, err = svc.Update(ctx, user.ID, first.ID, ScheduleInput{DayOfWeek: 1, StartTime: "07:00", EndTime: "14:00"})
	assert.True(t, apperr.IsCapacityExceeded(err))

	planned, budget, err := svc.PlannedHours(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, planned)
	assert.Equal(t, 10.0, budget)

	other := env.createUser(t, "Bob", 10)
	assert.True(t, apperr.IsNotFound(svc.Delete(ctx, other.ID, first.ID)))
	require.NoError(t, svc.Delete(ctx, user.ID, first.ID))

	entries, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.List(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}
