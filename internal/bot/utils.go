package bot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/models"
)

var errEmptyAlbum = errors.New("album has no media")

// sendText sends an HTML text message with an optional reply markup
func (b *Bot) sendText(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return b.api.Send(msg)
}

// reply sends a text message and logs failures
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sendText(chatID, text, nil); err != nil {
		b.logger.Warn("Failed to send reply", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// notify is the fire-and-forget path for user notifications. Failures, e.g. a user who
// blocked the bot, are logged and counted but never surface to the caller.
func (b *Bot) notify(userID int64, text string) {
	if _, err := b.sendText(userID, text, nil); err != nil {
		notifyFailures.Inc()
		b.logger.Warn("Failed to notify user", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// sendMedia sends a single photo or video with an HTML caption
func (b *Bot) sendMedia(chatID int64, item models.MediaItem, caption string, markup interface{}) (tgbotapi.Message, error) {
	switch item.Kind {
	case models.MediaPhoto:
		cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = markup
		}
		return b.api.Send(cfg)
	case models.MediaVideo:
		cfg := tgbotapi.NewVideo(chatID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = markup
		}
		return b.api.Send(cfg)
	default:
		return tgbotapi.Message{}, fmt.Errorf("unsupported media kind %q", item.Kind)
	}
}

// sendAlbum sends items as one media group with the caption on the first item
func (b *Bot) sendAlbum(chatID int64, items []models.MediaItem, caption string) ([]tgbotapi.Message, error) {
	if len(items) == 0 {
		return nil, errEmptyAlbum
	}

	media := make([]interface{}, 0, len(items))
	for i, item := range items {
		switch item.Kind {
		case models.MediaPhoto:
			m := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(item.FileID))
			if i == 0 {
				m.Caption = caption
				m.ParseMode = tgbotapi.ModeHTML
			}
			media = append(media, m)
		case models.MediaVideo:
			m := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(item.FileID))
			if i == 0 {
				m.Caption = caption
				m.ParseMode = tgbotapi.ModeHTML
			}
			media = append(media, m)
		default:
			return nil, fmt.Errorf("unsupported media kind %q", item.Kind)
		}
	}

	msgs, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, errEmptyAlbum
	}
	return msgs, nil
}

// sendPostMedia sends a post's media, as an album when it has more than one item
func (b *Bot) sendPostMedia(chatID int64, items []models.MediaItem, caption string) (tgbotapi.Message, error) {
	if len(items) == 1 {
		return b.sendMedia(chatID, items[0], caption, nil)
	}
	msgs, err := b.sendAlbum(chatID, items, caption)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	return msgs[0], nil
}

// answer answers a callback query, optionally as an alert
func (b *Bot) answer(query *tgbotapi.CallbackQuery, text string, alert bool) {
	cfg := tgbotapi.NewCallback(query.ID, text)
	cfg.ShowAlert = alert
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err), zap.String("data", query.Data))
	}
}

// clearKeyboard removes the inline keyboard from the message a callback came from
func (b *Bot) clearKeyboard(query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(query.Message.Chat.ID, query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Warn("Failed to remove keyboard", zap.Error(err), zap.Int("message_id", query.Message.MessageID))
	}
}

// moderatorName resolves the display name of a moderator
func (b *Bot) moderatorName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return b.mods.Name(u.ID, fullName(u))
}

// mediaOf extracts the largest photo or the video of a message
func mediaOf(m *tgbotapi.Message) (models.MediaItem, bool) {
	switch {
	case len(m.Photo) > 0:
		return models.MediaItem{Kind: models.MediaPhoto, FileID: m.Photo[len(m.Photo)-1].FileID}, true
	case m.Video != nil:
		return models.MediaItem{Kind: models.MediaVideo, FileID: m.Video.FileID}, true
	default:
		return models.MediaItem{}, false
	}
}
