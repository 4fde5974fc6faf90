package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService delivers share notifications to users who linked a
// Telegram chat. A nil or disabled service is safe to call; every method
// turns into a logged no-op.
type TelegramService interface {
	NotifyInvitation(chatID int64, fromName, subtaskName string) error
}

type telegramService struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramService connects to the bot API. With an empty token the
// service runs disabled, which is the normal mode in tests and local dev.
func NewTelegramService(botToken string) TelegramService {
	if botToken == "" {
		log.Printf("[tg] no bot token configured, notifications disabled")
		return &telegramService{}
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[tg][err] bot init failed, notifications disabled: %v", err)
		return &telegramService{}
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return &telegramService{bot: bot}
}

func (t *telegramService) NotifyInvitation(chatID int64, fromName, subtaskName string) error {
	if t.bot == nil || chatID == 0 {
		log.Printf("[tg][skip] bot disabled or chatID empty (chatID=%d)", chatID)
		return nil
	}
	text := fmt.Sprintf("<b>%s</b> wants to share the task <b>%s</b> with you.\nOpen EagleTask to accept or decline.",
		fromName, subtaskName)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return err
	}
	return nil
}
