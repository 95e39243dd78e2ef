package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// TelegramAPI is the subset of *tgbotapi.BotAPI the bot uses
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

var _ TelegramAPI = (*tgbotapi.BotAPI)(nil)
