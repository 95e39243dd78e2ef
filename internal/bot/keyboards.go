package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsbot/internal/models"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSendPost)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWhoPosted)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeletePost)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(btnSharePhone)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func moderationKeyboard(postID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Схвалити", postData(cbApprove, postID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Відхилити", postData(cbReject, postID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📎 Запросити докази", postData(cbRequestEvidence, postID)),
		),
	)
}

func (b *Bot) actionMenuKeyboard(requesterID int64, msgID int) tgbotapi.InlineKeyboardMarkup {
	s := b.settings
	info := paymentRef{RequesterID: requesterID, MsgID: msgID, Action: models.ActionInfo}
	del := paymentRef{RequesterID: requesterID, MsgID: msgID, Action: models.ActionDelete}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Дізнатись (%d %s)", s.PriceInfo, s.Currency), paymentData(cbSelectAction, info)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Видалити (%d %s)", s.PriceDelete, s.Currency), paymentData(cbSelectAction, del)),
		),
	)
}

func proofKeyboard(p models.PendingPayment) tgbotapi.InlineKeyboardMarkup {
	ref := paymentRef{RequesterID: p.RequesterID, MsgID: p.TargetMsgID, Action: p.Action}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Оплачено", paymentData(cbConfirmPayment, ref)),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Відхилити оплату", paymentData(cbRejectPayment, ref)),
		),
	)
}
