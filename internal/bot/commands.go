package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
)

// handleStart handles the /start command
func (b *Bot) handleStart(message *tgbotapi.Message) {
	if _, err := b.sendText(message.Chat.ID, textStart, mainMenuKeyboard()); err != nil {
		b.logger.Warn("Failed to send main menu", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	}
	b.audit.Record(audit.Entry{Action: audit.ActionStart, User: strconv.FormatInt(message.From.ID, 10)})
}

// handleMenuButton answers the reply keyboard buttons with instructions
func (b *Bot) handleMenuButton(message *tgbotapi.Message) {
	var (
		text   string
		action audit.Action
	)
	switch strings.TrimSpace(message.Text) {
	case btnSendPost:
		text, action = textAskPost, audit.ActionAskSendPost
	case btnWhoPosted:
		text, action = fmt.Sprintf(textAskInfo, b.settings.PriceInfo, b.settings.Currency), audit.ActionAskInfo
	case btnDeletePost:
		text, action = fmt.Sprintf(textAskDel, b.settings.PriceDelete, b.settings.Currency), audit.ActionAskDelete
	default:
		return
	}
	b.reply(message.Chat.ID, text)
	b.audit.Record(audit.Entry{Action: action, User: strconv.FormatInt(message.From.ID, 10)})
}

// handleContact stores the phone number a user shared about themselves
func (b *Bot) handleContact(message *tgbotapi.Message) {
	contact := message.Contact
	if contact.UserID != 0 && contact.UserID != message.From.ID {
		b.reply(message.Chat.ID, textPhoneNotOwn)
		return
	}
	phone := strings.TrimSpace(contact.PhoneNumber)
	if phone == "" {
		b.reply(message.Chat.ID, textPhoneNotOwn)
		return
	}

	b.state.SetPhone(message.From.ID, phone)
	b.reply(message.Chat.ID, textPhoneSaved)
	b.audit.Record(audit.Entry{Action: audit.ActionPhoneShared, User: strconv.FormatInt(message.From.ID, 10)})
}

// handleStatus lists posts waiting for a decision and payments stuck after proof
func (b *Bot) handleStatus(ctx context.Context, message *tgbotapi.Message) {
	published := -1
	posts, err := b.db.ListPosts(ctx)
	if err != nil {
		b.logger.Error("Failed to list published posts", zap.Error(err))
	} else {
		published = len(posts)
	}

	report := b.statusReport(b.state.PendingPosts(), b.state.StuckPayments(), published)
	if _, err := b.sendText(message.Chat.ID, report, nil); err != nil {
		b.logger.Warn("Failed to send status", zap.Error(err))
	}
}
