package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandleUpdate processes a single update from polling or the webhook queue
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		updatesHandled.WithLabelValues("message").Inc()
		b.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		updatesHandled.WithLabelValues("callback_query").Inc()
		b.handleCallbackQuery(update.CallbackQuery)
	default:
		updatesHandled.WithLabelValues("other").Inc()
	}
}

// recoverHandler keeps a panicking handler from taking the bot down
func (b *Bot) recoverHandler(where string, chatID int64) {
	if r := recover(); r != nil {
		handlerPanics.Inc()
		b.logger.Error("Recovered from panic",
			zap.String("handler", where),
			zap.Any("panic", r),
			zap.Int64("chat_id", chatID),
			zap.Stack("stack"),
		)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	defer b.recoverHandler("handleMessage", message.Chat.ID)

	ctx := context.Background()

	if message.Chat.ID == b.settings.ModerationGroup {
		if message.IsCommand() && message.Command() == "status" {
			b.handleStatus(ctx, message)
		}
		return
	}
	if !message.Chat.IsPrivate() {
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(message)
		}
		return
	}

	switch {
	case message.Contact != nil:
		b.handleContact(message)
	case len(message.Photo) > 0 || message.Video != nil:
		b.handleMedia(message)
	default:
		switch strings.TrimSpace(message.Text) {
		case btnSendPost, btnWhoPosted, btnDeletePost:
			b.handleMenuButton(message)
		default:
			b.handleLink(ctx, message)
		}
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	defer b.recoverHandler("handleCallbackQuery", query.From.ID)

	ctx := context.Background()
	data := query.Data

	switch prefix := callbackPrefix(data); prefix {
	case cbApprove, cbReject, cbRequestEvidence:
		if !b.fromModeration(query) {
			b.answer(query, textModsOnly, true)
			return
		}
		postID, err := parsePostData(data)
		if err != nil {
			b.answer(query, textBadData, true)
			return
		}
		switch prefix {
		case cbApprove:
			b.handleApprove(ctx, query, postID)
		case cbReject:
			b.handleReject(query, postID)
		case cbRequestEvidence:
			b.handleRequestEvidence(query, postID)
		}

	case cbSelectAction:
		b.handleSelectAction(ctx, query)

	case cbConfirmPayment, cbRejectPayment:
		if !b.fromModeration(query) {
			b.answer(query, textModsOnly, true)
			return
		}
		ref, err := parsePaymentData(data)
		if err != nil {
			b.answer(query, textBadData, true)
			return
		}
		if prefix == cbConfirmPayment {
			b.handleConfirmPayment(ctx, query, ref)
		} else {
			b.handleRejectPayment(query, ref)
		}

	default:
		b.logger.Debug("Unknown callback data", zap.String("data", data))
		b.answer(query, "", false)
	}
}

// fromModeration reports whether a button was pressed inside the moderation chat
func (b *Bot) fromModeration(query *tgbotapi.CallbackQuery) bool {
	return query.Message != nil && query.Message.Chat != nil && query.Message.Chat.ID == b.settings.ModerationGroup
}
