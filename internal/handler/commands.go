package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start", "help":
		h.sendHelpMessage(message)
	case "helpadmin":
		h.sendAdminHelpMessage(ctx, message)

	// Профиль
	case "register":
		h.register(ctx, message, args)
	case "me", "myprofile":
		h.showProfile(ctx, message)

	// Учет рабочего времени
	case "in", "startwork":
		h.clockIn(ctx, message, args)
	case "pause":
		h.pauseSession(ctx, message.Chat.ID)
	case "resume":
		h.resumeSession(ctx, message.Chat.ID)
	case "out", "endwork", "finish":
		h.clockOut(ctx, message.Chat.ID)
	case "status":
		h.getWorkStatus(ctx, message)
	case "week":
		h.getWeekHours(ctx, message)
	case "history":
		h.getWorkHistory(ctx, message, args)

	// График на неделю
	case "schedule":
		h.showSchedule(ctx, message)
	case "addschedule":
		h.addSchedule(ctx, message, args)
	case "deleteschedule":
		h.deleteSchedule(ctx, message, args)

	// Архив недель
	case "myweeks":
		h.showMyWeeks(ctx, message)

	// Администрирование
	case "allusers":
		h.showAllUsers(ctx, message)
	case "rolloverstatus":
		h.showRolloverStatus(ctx, message)
	case "rollover":
		h.manualRollover(ctx, message)
	case "weekhistory":
		h.createWeekHistory(ctx, message, args)
	case "archive":
		h.showArchive(ctx, message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, "❌ Неизвестная команда. Используйте /help для списка команд.")
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	text := `📋 Доступные команды:

👤 Профиль:
/register <часы> <имя> - Зарегистрироваться с недельным лимитом часов
/me - Показать мой профиль

⏰ Рабочее время:
/in [занятие] - Начать работу
/pause - Пауза
/resume - Продолжить после паузы
/out - Закончить работу
/status - Текущая сессия
/week - Часы за текущую неделю
/history [N] - Последние N сессий

📅 График:
/schedule - Мой график на неделю
/addschedule <день 0-6> <ЧЧ:ММ> <ЧЧ:ММ> - Добавить интервал
/deleteschedule <id> - Удалить интервал

📚 Архив:
/myweeks - Мои прошлые недели`

	h.reply(message.Chat.ID, text)
}

func (h *Handler) sendAdminHelpMessage(ctx context.Context, message *tgbotapi.Message) {
	if !h.requireAdmin(ctx, message.Chat.ID) {
		return
	}

	text := `👑 Команды администратора:

/allusers - Все пользователи и часы текущей недели
/rolloverstatus - Состояние еженедельного архивирования
/rollover - Архивировать текущую неделю и обнулить счетчики
/weekhistory <ГГГГ-ММ-ДД> - Архивировать прошедшую неделю без обнуления
/archive [с ГГГГ-ММ-ДД] [по ГГГГ-ММ-ДД] - Архив всех пользователей`

	h.reply(message.Chat.ID, text)
}
