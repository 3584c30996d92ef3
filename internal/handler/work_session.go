package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lab-hours/internal/models"
)

// Данные inline кнопок
const (
	callbackClockOut = "command_clock_out"
	callbackPause    = "command_pause"
	callbackResume   = "command_resume"
)

func sessionKeyboard(status string) tgbotapi.InlineKeyboardMarkup {
	toggle := tgbotapi.NewInlineKeyboardButtonData("⏸ Пауза", callbackPause)
	if status == models.SessionPaused {
		toggle = tgbotapi.NewInlineKeyboardButtonData("▶️ Продолжить", callbackResume)
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("🏁 Закончить", callbackClockOut),
		),
	)
}

// clockIn отмечает начало работы
func (h *Handler) clockIn(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	open, err := h.sessionService.Active(ctx, user.ID)
	if err != nil {
		h.replyError(chatID, "Ошибка проверки сессии", err)
		return
	}
	if open != nil {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"⚠️ Работа уже идет с %s.\nЗавершите ее командой /out",
			open.StartTime.In(h.calc.Location()).Format("15:04")))
		msg.ReplyMarkup = sessionKeyboard(open.Status)
		h.send(msg)
		return
	}

	session, err := h.sessionService.Start(ctx, user.ID, strings.TrimSpace(args), "", nil)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to clock in")
		h.replyError(chatID, "Ошибка начала работы", err)
		return
	}

	start := session.StartTime.In(h.calc.Location())
	text := fmt.Sprintf(`✅ Работа начата!

⏰ Время начала: %s
📅 Дата: %s`,
		start.Format("15:04"),
		start.Format("02.01.2006"),
	)
	if session.Activity != "" {
		text += "\n📝 Занятие: " + session.Activity
	}
	text += "\n\n💡 Не забудьте отметить окончание командой /out"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = sessionKeyboard(session.Status)
	h.send(msg)
}

func (h *Handler) pauseSession(ctx context.Context, chatID int64) {
	user, open, ok := h.openSession(ctx, chatID)
	if !ok {
		return
	}

	session, err := h.sessionService.Pause(ctx, user.ID, open.ID)
	if err != nil {
		h.replyError(chatID, "Не удалось поставить на паузу", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "⏸ Работа на паузе. Продолжить: /resume")
	msg.ReplyMarkup = sessionKeyboard(session.Status)
	h.send(msg)
}

func (h *Handler) resumeSession(ctx context.Context, chatID int64) {
	user, open, ok := h.openSession(ctx, chatID)
	if !ok {
		return
	}

	session, err := h.sessionService.Resume(ctx, user.ID, open.ID)
	if err != nil {
		h.replyError(chatID, "Не удалось продолжить работу", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "▶️ Работа продолжена.")
	msg.ReplyMarkup = sessionKeyboard(session.Status)
	h.send(msg)
}

// clockOut закрывает открытую сессию и показывает итог недели
func (h *Handler) clockOut(ctx context.Context, chatID int64) {
	user, open, ok := h.openSession(ctx, chatID)
	if !ok {
		return
	}

	session, err := h.sessionService.Stop(ctx, user.ID, open.ID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to clock out")
		h.replyError(chatID, "Ошибка завершения работы", err)
		return
	}
	h.userService.RecordWorkedHours(ctx, session)

	loc := h.calc.Location()
	text := fmt.Sprintf(`🏁 Работа завершена!

⏰ %s - %s
⏱ Отработано: %s`,
		session.StartTime.In(loc).Format("15:04"),
		session.EndTime.In(loc).Format("15:04"),
		session.FormatDuration(),
	)

	window := h.calc.WindowFor(session.StartTime)
	if hours, err := h.hourAggregator.SumHours(ctx, user.ID, window, nil); err == nil {
		text += fmt.Sprintf("\n📊 За неделю: %s из %s", models.FormatHours(hours), models.FormatHours(user.WeekHours))
	}

	h.reply(chatID, text)
}

// getWorkStatus показывает открытую сессию
func (h *Handler) getWorkStatus(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	open, err := h.sessionService.Active(ctx, user.ID)
	if err != nil {
		h.replyError(chatID, "Ошибка получения статуса", err)
		return
	}
	if open == nil {
		h.reply(chatID, "💤 Сейчас вы не работаете. Начать: /in")
		return
	}

	state := "🟢 Идет работа"
	if open.Status == models.SessionPaused {
		state = "⏸ На паузе"
	}

	text := fmt.Sprintf("%s\n⏰ Начало: %s\n⏱ Прошло: %s",
		state,
		open.StartTime.In(h.calc.Location()).Format("02.01.2006 15:04"),
		formatElapsed(h.now().Sub(open.StartTime).Minutes()),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = sessionKeyboard(open.Status)
	h.send(msg)
}

// getWeekHours показывает часы за текущую неделю по завершенным сессиям
func (h *Handler) getWeekHours(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	window := h.calc.WindowFor(h.now())
	hours, err := h.hourAggregator.SumHours(ctx, user.ID, window, nil)
	if err != nil {
		h.replyError(chatID, "Ошибка подсчета часов", err)
		return
	}

	loc := h.calc.Location()
	text := fmt.Sprintf(`📊 Неделя %s - %s

⏱ Отработано: %s
🎯 Лимит: %s`,
		window.Start.In(loc).Format("02.01"),
		window.End.In(loc).AddDate(0, 0, -1).Format("02.01"),
		models.FormatHours(hours),
		models.FormatHours(user.WeekHours),
	)
	if user.WeekHours > hours {
		text += "\n⏳ Осталось: " + models.FormatHours(user.WeekHours-hours)
	}

	h.reply(chatID, text)
}

// getWorkHistory показывает последние сессии: /history 5
func (h *Handler) getWorkHistory(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	limit := 10
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			h.reply(chatID, "❌ Формат: /history [количество]")
			return
		}
		limit = n
	}

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	sessions, err := h.sessionService.History(ctx, user.ID, limit)
	if err != nil {
		h.replyError(chatID, "Ошибка получения истории", err)
		return
	}
	if len(sessions) == 0 {
		h.reply(chatID, "📭 Сессий пока нет.")
		return
	}

	loc := h.calc.Location()
	lines := []string{"🗂 Последние сессии:", ""}
	for _, s := range sessions {
		line := fmt.Sprintf("• %s %s", s.StartTime.In(loc).Format("02.01 15:04"), s.FormatDuration())
		if s.Activity != "" {
			line += " (" + s.Activity + ")"
		}
		lines = append(lines, line)
	}

	h.reply(chatID, strings.Join(lines, "\n"))
}

// openSession находит пользователя и его открытую сессию; если чего-то нет, отвечает сам
func (h *Handler) openSession(ctx context.Context, chatID int64) (*models.User, *models.WorkSession, bool) {
	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return nil, nil, false
	}

	open, err := h.sessionService.Active(ctx, user.ID)
	if err != nil {
		h.replyError(chatID, "Ошибка проверки сессии", err)
		return nil, nil, false
	}
	if open == nil {
		h.reply(chatID, "❌ Нет открытой сессии. Начать работу: /in")
		return nil, nil, false
	}

	return user, open, true
}

func formatElapsed(minutes float64) string {
	if minutes < 0 {
		minutes = 0
	}
	total := int(minutes)
	if total < 60 {
		return fmt.Sprintf("%dм", total)
	}
	return fmt.Sprintf("%dч %dм", total/60, total%60)
}
