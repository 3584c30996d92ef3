package handler

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"lab-hours/internal/models"
	"lab-hours/internal/repository"
	"lab-hours/internal/rollover"
)

// requireAdmin проверяет права; при отказе сам отвечает в чат
func (h *Handler) requireAdmin(ctx context.Context, chatID int64) bool {
	isAdmin, err := h.userService.IsAdmin(ctx, chatID)
	if err != nil {
		h.replyError(chatID, "Ошибка проверки прав доступа", err)
		return false
	}

	if !isAdmin {
		h.reply(chatID, "❌ Доступ запрещен. Эта команда только для администраторов.")
		return false
	}

	return true
}

// showAllUsers показывает всех пользователей и их счетчики недели
func (h *Handler) showAllUsers(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(ctx, chatID) {
		return
	}

	users, err := h.userService.ListAll(ctx)
	if err != nil {
		h.replyError(chatID, "Ошибка получения списка пользователей", err)
		return
	}

	h.reply(chatID, h.userService.FormatUsers(users))
}

// showRolloverStatus показывает расписание и итог последнего запуска
func (h *Handler) showRolloverStatus(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(ctx, chatID) {
		return
	}

	status := h.scheduler.Status()
	loc := h.calc.Location()

	state := "⏹ остановлен"
	if status.Running {
		state = "▶️ запущен"
	}

	lines := []string{
		"🗓 Еженедельное архивирование",
		"",
		"Планировщик: " + state,
		"Расписание: " + status.Description,
		"Начало недели: " + status.WeekStart,
		"Следующий запуск: " + status.NextRun.In(loc).Format("02.01.2006 15:04"),
	}

	if last := status.LastRun; last != nil {
		lines = append(lines,
			"",
			fmt.Sprintf("Последний запуск (%s): %s", last.Kind, last.FinishedAt.In(loc).Format("02.01.2006 15:04")),
			fmt.Sprintf("Неделя с %s: архив %d, пропущено %d, ошибок %d",
				last.WeekStart.In(loc).Format("02.01.2006"), last.Archived, last.Skipped, last.Failed),
		)
	}

	h.reply(chatID, strings.Join(lines, "\n"))
}

// manualRollover архивирует текущую неделю и обнуляет счетчики
func (h *Handler) manualRollover(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(ctx, chatID) {
		return
	}

	report, err := h.scheduler.ManualReset(ctx)
	if err != nil {
		h.replyError(chatID, "Ошибка архивирования", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"chat_id": chatID,
	}).Info("Manual rollover triggered from chat")

	h.reply(chatID, h.formatReport("✅ Неделя архивирована, счетчики обнулены.", report))
}

// createWeekHistory архивирует прошедшую неделю без обнуления: /weekhistory 2024-01-01
func (h *Handler) createWeekHistory(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(ctx, chatID) {
		return
	}

	weekStart, err := h.calc.ParseDate(strings.TrimSpace(args))
	if err != nil {
		h.reply(chatID, "❌ Формат: /weekhistory ГГГГ-ММ-ДД\nНапример: /weekhistory 2024-01-01")
		return
	}

	report, err := h.scheduler.CreateHistoryForWeek(ctx, weekStart)
	if err != nil {
		h.replyError(chatID, "Ошибка архивирования недели", err)
		return
	}

	h.reply(chatID, h.formatReport("✅ Архив недели создан.", report))
}

// showArchive показывает архив всех пользователей: /archive [с] [по]
func (h *Handler) showArchive(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(ctx, chatID) {
		return
	}

	filter := repository.HistoryFilter{Limit: 50}
	parts := strings.Fields(args)
	if len(parts) > 2 {
		h.reply(chatID, "❌ Формат: /archive [с ГГГГ-ММ-ДД] [по ГГГГ-ММ-ДД]")
		return
	}
	for i, part := range parts {
		date, err := h.calc.ParseDate(part)
		if err != nil {
			h.reply(chatID, fmt.Sprintf("❌ Неверная дата %q. Используйте ГГГГ-ММ-ДД", part))
			return
		}
		if i == 0 {
			filter.From = &date
		} else {
			filter.To = &date
		}
	}

	rows, err := h.historyService.List(ctx, filter)
	if err != nil {
		h.replyError(chatID, "Ошибка получения архива", err)
		return
	}

	h.reply(chatID, h.historyService.FormatHistory(rows, h.calc.Location()))
}

func (h *Handler) formatReport(title string, report *rollover.Report) string {
	loc := h.calc.Location()

	lines := []string{
		title,
		"",
		fmt.Sprintf("📅 Неделя: %s - %s",
			report.Window.Start.In(loc).Format("02.01.2006"),
			report.Window.End.In(loc).AddDate(0, 0, -1).Format("02.01.2006")),
		fmt.Sprintf("📦 В архиве: %d (всего %s)", len(report.Archived), models.FormatHours(report.TotalHours())),
		fmt.Sprintf("⏭ Пропущено: %d", report.Skipped),
	}

	if len(report.Failures) > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ Ошибки: %d", len(report.Failures)))
		for _, f := range report.Failures {
			lines = append(lines, fmt.Sprintf("• %s: %s", f.UserName, f.Error))
		}
	}

	return strings.Join(lines, "\n")
}
