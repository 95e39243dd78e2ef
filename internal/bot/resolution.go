package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/storage"
)

// handleLink offers the paid actions for a channel post link. Text without a link is ignored.
func (b *Bot) handleLink(ctx context.Context, message *tgbotapi.Message) {
	slug, msgID, ok := parseLink(message.Text)
	if !ok {
		return
	}
	userID := message.From.ID
	uid := strconv.FormatInt(userID, 10)

	b.audit.Record(audit.Entry{
		Action: audit.ActionUserSentLink,
		User:   uid,
		Extra:  fmt.Sprintf("msg_id=%d, channel=%s", msgID, slug),
	})

	if _, err := b.db.GetPost(ctx, msgID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(message.Chat.ID, textNotInDB)
			b.audit.Record(audit.Entry{
				Action: audit.ActionPostNotFound,
				User:   uid,
				Extra:  fmt.Sprintf("msg_id=%d", msgID),
			})
			return
		}
		b.logger.Error("Failed to look up post", zap.Error(err), zap.Int("message_id", msgID))
		b.reply(message.Chat.ID, textError)
		return
	}

	if _, err := b.sendText(message.Chat.ID, textChooseAction, b.actionMenuKeyboard(userID, msgID)); err != nil {
		b.logger.Warn("Failed to send action menu", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// handleSelectAction records the requester's choice and sends payment instructions
func (b *Bot) handleSelectAction(ctx context.Context, query *tgbotapi.CallbackQuery) {
	ref, err := parsePaymentData(query.Data)
	if err != nil || ref.RequesterID != query.From.ID {
		b.answer(query, textBadData, true)
		return
	}
	uid := strconv.FormatInt(ref.RequesterID, 10)

	if _, err := b.db.GetPost(ctx, ref.MsgID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.answer(query, textNotInDB, true)
			b.audit.Record(audit.Entry{
				Action: audit.ActionPostNotFound,
				User:   uid,
				Extra:  fmt.Sprintf("msg_id=%d", ref.MsgID),
			})
			return
		}
		b.logger.Error("Failed to look up post", zap.Error(err), zap.Int("message_id", ref.MsgID))
		b.answer(query, textError, true)
		return
	}

	payment := b.state.SetPayment(ref.RequesterID, ref.Action, ref.MsgID, b.settings.price(ref.Action), b.now())
	paymentEvents.WithLabelValues(string(ref.Action), "requested").Inc()
	b.audit.Record(audit.Entry{
		Action: audit.ActionPaymentRequested,
		User:   uid,
		Extra:  fmt.Sprintf("action=%s, msg_id=%d, price=%d", payment.Action, payment.TargetMsgID, payment.Price),
	})

	chatID := ref.RequesterID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	if _, err := b.sendText(chatID, b.paymentInstructions(payment), nil); err != nil {
		b.logger.Warn("Failed to send payment instructions", zap.Error(err), zap.Int64("user_id", ref.RequesterID))
	}
	b.answer(query, textInstructionsOK, true)
}
