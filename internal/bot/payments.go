package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/models"
	"newsbot/internal/state"
	"newsbot/internal/storage"
)

// trySubmitProof forwards media as payment proof when the sender has a payment waiting
// for proof. It reports whether the media was consumed.
func (b *Bot) trySubmitProof(message *tgbotapi.Message, items []models.MediaItem) bool {
	user := message.From
	payment, ok := b.state.AwaitingProof(user.ID)
	if !ok {
		return false
	}

	now := b.now()
	caption := b.proofCaption(payment, displayName(user), now)
	if err := b.sendProof(items, caption, proofKeyboard(payment)); err != nil {
		b.logger.Error("Failed to forward payment proof",
			zap.Error(err),
			zap.Int64("user_id", user.ID),
			zap.Int("target_msg_id", payment.TargetMsgID),
		)
		b.reply(message.Chat.ID, textProofFailed)
		return true
	}

	if _, err := b.state.MarkProofSent(user.ID, now); err != nil {
		b.logger.Warn("Payment changed while forwarding proof", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	paymentEvents.WithLabelValues(string(payment.Action), "proof_sent").Inc()
	b.audit.Record(audit.Entry{
		Action: audit.ActionProofSent,
		User:   strconv.FormatInt(user.ID, 10),
		Extra:  fmt.Sprintf("target_msg_id=%d, action=%s, items=%d", payment.TargetMsgID, payment.Action, len(items)),
	})
	b.reply(message.Chat.ID, textProofReceived)
	return true
}

// sendProof posts proof media to the moderation group. Media groups cannot carry an
// inline keyboard, so an album is followed by a text message holding the buttons.
func (b *Bot) sendProof(items []models.MediaItem, caption string, kb tgbotapi.InlineKeyboardMarkup) error {
	group := b.settings.ModerationGroup
	if len(items) == 1 {
		_, err := b.sendMedia(group, items[0], caption, kb)
		return err
	}
	if _, err := b.sendAlbum(group, items, caption); err != nil {
		return err
	}
	_, err := b.sendText(group, textProofAwaiting, kb)
	return err
}

// handleConfirmPayment performs the paid action after a moderator confirmed the proof.
// A failed channel delete leaves the payment in proof_sent so the button can be pressed again.
func (b *Bot) handleConfirmPayment(ctx context.Context, query *tgbotapi.CallbackQuery, ref paymentRef) {
	payment, err := b.state.ClaimPayment(ref.RequesterID, ref.MsgID, ref.Action)
	if err != nil {
		b.answerPaymentError(query, err)
		return
	}

	modName := b.moderatorName(query.From)
	uid := strconv.FormatInt(ref.RequesterID, 10)

	post, err := b.db.GetPost(ctx, ref.MsgID)
	if err != nil {
		b.state.ReleasePayment(ref.RequesterID)
		if errors.Is(err, storage.ErrNotFound) {
			b.audit.Record(audit.Entry{
				Action:    audit.ActionConfirmNotFound,
				Moderator: modName,
				User:      uid,
				Extra:     fmt.Sprintf("msg_id=%d", ref.MsgID),
			})
			b.answer(query, textPostNotFound, true)
			return
		}
		b.logger.Error("Failed to look up post", zap.Error(err), zap.Int("message_id", ref.MsgID))
		b.answer(query, textError, true)
		return
	}

	switch payment.Action {
	case models.ActionInfo:
		b.notify(ref.RequesterID, b.authorInfo(post))
		b.completePayment(query, ref)
		b.audit.Record(audit.Entry{
			Action:    audit.ActionConfirmInfoSent,
			Moderator: modName,
			User:      uid,
			Extra:     fmt.Sprintf("msg_id=%d", ref.MsgID),
		})
		b.answer(query, textInfoSent, true)

	case models.ActionDelete:
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(post.ChannelID, post.MessageID)); err != nil {
			b.state.ReleasePayment(ref.RequesterID)
			paymentEvents.WithLabelValues(string(payment.Action), "failed").Inc()
			b.logger.Error("Failed to delete channel post",
				zap.Error(err),
				zap.Int64("channel_id", post.ChannelID),
				zap.Int("message_id", post.MessageID),
			)
			b.audit.Record(audit.Entry{
				Action:    audit.ActionDeleteFailed,
				Moderator: modName,
				User:      uid,
				Extra:     fmt.Sprintf("msg_id=%d, err=%v", ref.MsgID, err),
			})
			b.answer(query, textDeleteFailed, true)
			return
		}

		// The channel message is gone either way, so the payment completes
		alert := textDeletedAlert
		if err := b.db.DeletePost(ctx, post.MessageID); err != nil {
			b.logger.Error("Failed to remove deleted post from store",
				zap.Error(err),
				zap.Int("message_id", post.MessageID),
			)
			b.audit.Record(audit.Entry{
				Action:    audit.ActionDeleteRecordFailed,
				Moderator: modName,
				User:      uid,
				Extra:     fmt.Sprintf("msg_id=%d, err=%v", ref.MsgID, err),
			})
			alert = textDeletedNoRecord
		}
		b.notify(ref.RequesterID, textDeletedUser)
		b.completePayment(query, ref)
		b.audit.Record(audit.Entry{
			Action:    audit.ActionConfirmDeleted,
			Moderator: modName,
			User:      uid,
			Extra:     fmt.Sprintf("msg_id=%d", ref.MsgID),
		})
		b.answer(query, alert, true)

	default:
		b.state.ReleasePayment(ref.RequesterID)
		b.answer(query, textBadData, true)
	}
}

func (b *Bot) completePayment(query *tgbotapi.CallbackQuery, ref paymentRef) {
	if _, err := b.state.CompletePayment(ref.RequesterID, query.From.ID, b.now()); err != nil {
		b.logger.Warn("Failed to complete payment", zap.Error(err), zap.Int64("requester_id", ref.RequesterID))
		return
	}
	paymentEvents.WithLabelValues(string(ref.Action), "completed").Inc()
	b.clearKeyboard(query)
}

// handleRejectPayment rejects a payment proof. The requester has to pick the action again.
func (b *Bot) handleRejectPayment(query *tgbotapi.CallbackQuery, ref paymentRef) {
	if _, err := b.state.RejectPayment(ref.RequesterID, ref.MsgID, ref.Action, query.From.ID, b.now()); err != nil {
		b.answerPaymentError(query, err)
		return
	}

	b.clearKeyboard(query)
	b.notify(ref.RequesterID, textPaymentRejUser)
	paymentEvents.WithLabelValues(string(ref.Action), "rejected").Inc()
	b.audit.Record(audit.Entry{
		Action:    audit.ActionPaymentRejected,
		Moderator: b.moderatorName(query.From),
		User:      strconv.FormatInt(ref.RequesterID, 10),
		Extra:     fmt.Sprintf("msg_id=%d", ref.MsgID),
	})
	b.answer(query, textPaymentRejAlert, true)
}

func (b *Bot) answerPaymentError(query *tgbotapi.CallbackQuery, err error) {
	switch {
	case errors.Is(err, state.ErrNotFound):
		b.answer(query, textPaymentNotFound, true)
	case errors.Is(err, state.ErrAlreadyProcessed):
		b.answer(query, textPaymentDone, true)
	case errors.Is(err, state.ErrInProgress):
		b.answer(query, textPaymentBusy, true)
	default:
		b.logger.Error("Unexpected payment error", zap.Error(err), zap.String("data", query.Data))
		b.answer(query, textError, true)
	}
}
