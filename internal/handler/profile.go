package handler

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lab-hours/internal/apperr"
	"lab-hours/internal/models"
)

// register создает профиль: /register 40 Иван Петров
func (h *Handler) register(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	parts := strings.Fields(args)
	if len(parts) < 2 {
		h.reply(chatID, "❌ Формат: /register <часы в неделю> <имя>\nНапример: /register 20 Иван Петров")
		return
	}

	weekHours, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", "."), 64)
	if err != nil {
		h.reply(chatID, "❌ Недельный лимит должен быть числом, например 20 или 12.5")
		return
	}

	user, err := h.userService.Register(ctx, chatID, strings.Join(parts[1:], " "), weekHours)
	if err != nil {
		h.replyError(chatID, "Ошибка регистрации", err)
		return
	}

	h.reply(chatID, "✅ Профиль готов!\n\n"+h.userService.FormatUserInfo(user))
}

func (h *Handler) showProfile(ctx context.Context, message *tgbotapi.Message) {
	user, ok := h.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	h.reply(message.Chat.ID, h.userService.FormatUserInfo(user))
}

// currentUser находит пользователя чата; если его нет, сам отвечает в чат
func (h *Handler) currentUser(ctx context.Context, chatID int64) (*models.User, bool) {
	user, err := h.userService.GetByChat(ctx, chatID)
	if err != nil {
		if apperr.IsNotFound(err) {
			h.reply(chatID, "❌ Профиль не найден.\nИспользуйте /register чтобы создать профиль.")
			return nil, false
		}
		h.replyError(chatID, "Ошибка получения профиля", err)
		return nil, false
	}

	return user, true
}

// replyError отправляет пользователю понятное описание ошибки.
// Сбои хранилища только логируются, наружу уходит общее сообщение.
func (h *Handler) replyError(chatID int64, prefix string, err error) {
	if apperr.IsPersistence(err) || !isUserFacing(err) {
		h.logger.WithError(err).WithField("chat_id", chatID).Error(prefix)
		h.reply(chatID, "❌ "+prefix+". Попробуйте позже.")
		return
	}

	h.reply(chatID, "❌ "+prefix+": "+err.Error())
}

func isUserFacing(err error) bool {
	return apperr.IsValidation(err) ||
		apperr.IsNotFound(err) ||
		apperr.IsInvalidState(err) ||
		apperr.IsCapacityExceeded(err)
}
