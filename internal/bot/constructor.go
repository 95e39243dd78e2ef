package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const webhookQueueSize = 100

// NewBot creates a new Telegram bot
func NewBot(token string, settings Settings, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		deps.Logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	deps.Logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return newBot(api, settings, deps), nil
}

func newBot(api TelegramAPI, settings Settings, deps Deps) *Bot {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.AlbumQuietPeriod <= 0 {
		settings.AlbumQuietPeriod = time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bot{
		api:      api,
		db:       deps.DB,
		state:    deps.State,
		mods:     deps.Moderators,
		audit:    deps.Audit,
		settings: settings,
		logger:   logger,
		updates:  make(chan tgbotapi.Update, webhookQueueSize),
		now:      time.Now,
	}
	b.albums = newAlbumBuffer(settings.AlbumQuietPeriod, b.flushAlbum)
	return b
}
