package handler

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"lab-hours/internal/logger"
	"lab-hours/internal/rollover"
	"lab-hours/internal/service"
	"lab-hours/pkg/weekwindow"
)

// Sender - то, через что бот отправляет сообщения (telegram.Client в проде)
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler struct {
	client          Sender
	userService     *service.UserService
	sessionService  *service.WorkSessionService
	hourAggregator  *service.HourAggregator
	historyService  *service.WeeklyHistoryService
	scheduleService *service.UserScheduleService
	scheduler       *rollover.Scheduler
	calc            *weekwindow.Calculator
	logger          *logrus.Logger
	requestTimeout  time.Duration
	now             func() time.Time
}

func NewHandler(
	client Sender,
	userService *service.UserService,
	sessionService *service.WorkSessionService,
	hourAggregator *service.HourAggregator,
	historyService *service.WeeklyHistoryService,
	scheduleService *service.UserScheduleService,
	scheduler *rollover.Scheduler,
	calc *weekwindow.Calculator,
	log *logrus.Logger,
) *Handler {
	return &Handler{
		client:          client,
		userService:     userService,
		sessionService:  sessionService,
		hourAggregator:  hourAggregator,
		historyService:  historyService,
		scheduleService: scheduleService,
		scheduler:       scheduler,
		calc:            calc,
		logger:          logger.OrDefault(log),
		requestTimeout:  30 * time.Second,
		now:             time.Now,
	}
}

// SetClock подменяет источник текущего времени
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// HandleUpdates обрабатывает обновления, пока канал не закрыт или ctx не отменен
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	// Обработка callback query (для inline кнопок)
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	h.handleMessage(ctx, update.Message)
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	// Удаляем клавиатуру
	editMsg := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.send(editMsg)

	switch callback.Data {
	case callbackClockOut:
		h.clockOut(ctx, chatID)
	case callbackPause:
		h.pauseSession(ctx, chatID)
	case callbackResume:
		h.resumeSession(ctx, chatID)
	}

	// Отвечаем на callback (убираем "часики" у кнопки)
	h.send(tgbotapi.NewCallback(callback.ID, ""))
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	fields := logrus.Fields{"chat_id": message.Chat.ID}
	if message.From != nil {
		fields["username"] = message.From.UserName
	}
	h.logger.WithFields(fields).Debug(message.Text)

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	h.reply(message.Chat.ID, "🤖 Я понимаю только команды. Используйте /help для списка команд.")
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.client.Send(c); err != nil {
		h.logger.WithError(err).Warn("Failed to send telegram message")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}
