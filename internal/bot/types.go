package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/models"
	"newsbot/internal/moderators"
	"newsbot/internal/state"
	"newsbot/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      TelegramAPI
	db       storage.Storage
	state    *state.State
	mods     *moderators.Directory
	audit    *audit.Log
	settings Settings
	logger   *zap.Logger

	albums  *albumBuffer
	updates chan tgbotapi.Update
	now     func() time.Time
}

// Settings holds the chat ids, prices and texts the handlers depend on
type Settings struct {
	ChannelID       int64
	ModerationGroup int64
	CardNumber      string
	BotLink         string

	FooterChannelLink  string
	FooterChannelTitle string
	FooterChannelName  string

	PriceInfo   int
	PriceDelete int
	Currency    string

	Location         *time.Location
	AlbumQuietPeriod time.Duration
	RestartDelay     time.Duration
}

// Deps groups the collaborators of the bot
type Deps struct {
	DB         storage.Storage
	State      *state.State
	Moderators *moderators.Directory
	Audit      *audit.Log
	Logger     *zap.Logger
}

// price returns the configured price of a paid action
func (s Settings) price(action models.PaymentAction) int {
	if action == models.ActionDelete {
		return s.PriceDelete
	}
	return s.PriceInfo
}
