package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
	"lab-hours/internal/service"
)

// showSchedule показывает недельный график пользователя
func (h *Handler) showSchedule(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	entries, err := h.scheduleService.List(ctx, user.ID)
	if err != nil {
		h.replyError(chatID, "Ошибка получения графика", err)
		return
	}

	planned, budget, err := h.scheduleService.PlannedHours(ctx, user.ID)
	if err != nil {
		h.replyError(chatID, "Ошибка получения графика", err)
		return
	}

	text := h.scheduleService.FormatSchedule(entries, planned, budget)
	if len(entries) > 0 {
		var ids []string
		for _, e := range entries {
			ids = append(ids, fmt.Sprintf("%s=%d", e.DayName(), e.ID))
		}
		text += "\n\n🆔 " + strings.Join(ids, ", ")
	}

	h.reply(chatID, text)
}

// addSchedule добавляет интервал: /addschedule 1 09:00 13:00
func (h *Handler) addSchedule(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	input, err := parseScheduleArgs(args)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error()+"\nФормат: /addschedule <день 0-6, 0=Вс> <ЧЧ:ММ> <ЧЧ:ММ>\nНапример: /addschedule 1 09:00 13:00")
		return
	}

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	entry, err := h.scheduleService.Create(ctx, user.ID, input)
	if err != nil {
		var capErr *apperr.CapacityExceededError
		if errors.As(err, &capErr) {
			h.reply(chatID, fmt.Sprintf("❌ График превышает недельный лимит: получится %s при лимите %s.",
				models.FormatHours(capErr.Requested), models.FormatHours(capErr.Budget)))
			return
		}
		h.replyError(chatID, "Ошибка добавления в график", err)
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Добавлено: %s %s-%s (id %d)", entry.DayName(), entry.StartTime, entry.EndTime, entry.ID))
}

// deleteSchedule удаляет интервал по id: /deleteschedule 5
func (h *Handler) deleteSchedule(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	id, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil || id == 0 {
		h.reply(chatID, "❌ Формат: /deleteschedule <id>\nid можно посмотреть в /schedule")
		return
	}

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	if err := h.scheduleService.Delete(ctx, user.ID, uint(id)); err != nil {
		h.replyError(chatID, "Ошибка удаления", err)
		return
	}

	h.reply(chatID, "🗑 Интервал удален.")
}

func parseScheduleArgs(args string) (service.ScheduleInput, error) {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return service.ScheduleInput{}, errors.New("нужно три значения")
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return service.ScheduleInput{}, errors.New("день недели должен быть числом")
	}

	return service.ScheduleInput{
		DayOfWeek: day,
		StartTime: parts[1],
		EndTime:   parts[2],
	}, nil
}
