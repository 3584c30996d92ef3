package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lab-hours/internal/repository"
)

// showMyWeeks показывает архив последних недель пользователя
func (h *Handler) showMyWeeks(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	rows, err := h.historyService.List(ctx, repository.HistoryFilter{UserID: &user.ID, Limit: 12})
	if err != nil {
		h.replyError(chatID, "Ошибка получения архива", err)
		return
	}

	h.reply(chatID, h.historyService.FormatHistory(rows, h.calc.Location()))
}
