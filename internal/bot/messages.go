package bot

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsbot/internal/models"
)

// Reply keyboard buttons
const (
	btnSendPost   = "📨 Відправити пост"
	btnWhoPosted  = "👤 Дізнатись чий пост"
	btnDeletePost = "🗑 Видалити пост"
	btnSharePhone = "📱 Поділитися номером"
)

const (
	textStart    = "👋 Вітаю! Оберіть дію нижче:"
	textAskPost  = "📸 Надішліть фото або відео з підписом до публікації."
	textAskInfo  = "ℹ️ Надішліть посилання на пост (https://t.me/channel/123). Ви отримаєте інструкції щодо оплати (%d %s)."
	textAskDel   = "🗑 Надішліть посилання на пост (https://t.me/channel/123). Ви отримаєте інструкції щодо оплати (%d %s)."
	textError    = "⚠️ Сталася помилка. Спробуйте ще раз."
	textBadData  = "Невірні дані."
	textModsOnly = "⛔ Ця дія доступна лише модераторам."

	textNoCaption       = "⚠️ Додайте підпис до фото/відео."
	textNoAlbumCaption  = "⚠️ Додайте підпис до альбому."
	textPostSubmitted   = "✅ Ваш пост відправлено на модерацію. Очікуйте рішення."
	textAlbumSubmitted  = "✅ Ваш пост (альбом) відправлено на модерацію. Очікуйте рішення."
	textSubmitFailed    = "⚠️ Не вдалося відправити пост на модерацію. Спробуйте ще раз."
	textAlbumAwaiting   = "⬆️ Новий альбом очікує модерації:"
	textPostProcessed   = "⚠️ Пост вже оброблено."
	textPostPublishing  = "⏳ Пост уже публікується."
	textApprovedUser    = "✅ Ваш пост схвалено і опубліковано в каналі!"
	textApprovedAlert   = "✅ Пост схвалено та опубліковано!"
	textApprovedNoSave  = "✅ Пост опубліковано, але запис не збережено. Перевірте журнал."
	textPublishFailed   = "⚠️ Не вдалося опублікувати пост. Спробуйте ще раз."
	textRejectedUser    = "❌ Ваш пост відхилено модератором."
	textRejectedAlert   = "❌ Пост відхилено."
	textEvidenceUser    = "Модератор просить надіслати фото/відео доказ для вашого поста #%d. Надішліть тут медіа (воно не створить новий пост)."
	textEvidenceAlert   = "✅ Запит на докази надіслано користувачу."
	textEvidenceSent    = "✅ Докази отримано та передано модераторам."
	textEvidenceFailed  = "⚠️ Не вдалося передати докази модераторам. Надішліть їх ще раз."
	textChooseAction    = "Оберіть дію для цього посилання:"
	textNotInDB         = "❗ Пост не знайдено у базі."
	textInstructionsOK  = "Інструкції для оплати надіслані користувачу."
	textProofReceived   = "✅ Доказ отримано. Ми переслали його модераторам для перевірки. Очікуйте рішення."
	textProofFailed     = "⚠️ Не вдалося передати доказ модераторам. Надішліть його ще раз."
	textPaymentNotFound = "Запит оплати не знайдено."
	textPaymentDone     = "Запит вже оброблено."
	textPaymentBusy     = "⏳ Запит уже обробляється."
	textPostNotFound    = "Пост не знайдено."
	textInfoUnavailable = "ℹ️ Інформація недоступна."
	textInfoSent        = "✅ Інформацію відправлено запитувачу."
	textDeletedUser     = "🗑️ Пост успішно видалено модератором."
	textDeletedAlert    = "✅ Пост видалено."
	textDeleteFailed    = "⚠️ Не вдалося видалити пост."
	textPaymentRejUser  = "❌ Доказ оплати відхилено модератором. Будь ласка, повторіть оплату."
	textPaymentRejAlert = "✅ Запит відхилено та користувача повідомлено."
	textPhoneSaved      = "✅ Номер збережено. Він буде доданий до ваших наступних постів."
	textPhoneNotOwn     = "⚠️ Поділіться, будь ласка, власним номером."
	textCaptionTooLong  = "⚠️ Підпис задовгий. Скоротіть його до %d символів."
	textDeletedNoRecord = "⚠️ Пост видалено з каналу, але запис у базі не видалено. Перевірте журнал."
	textProofAwaiting   = "⬆️ Доказ оплати (альбом) очікує рішення:"
)

// captionLimit is Telegram's limit on a media caption after entity parsing
const captionLimit = 1024

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// visibleLen is the length Telegram checks against captionLimit: tags stripped, entities
// decoded, counted in UTF-16 code units
func visibleLen(s string) int {
	return utf16Len(html.UnescapeString(htmlTagRe.ReplaceAllString(s, "")))
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// captionOverflow returns by how much the longer of the moderation and channel captions
// of post exceeds captionLimit, 0 when both fit
func (b *Bot) captionOverflow(post models.PendingPost) int {
	over := visibleLen(moderationCaption(post)) - captionLimit
	if o := visibleLen(b.footer(post.Caption)) - captionLimit; o > over {
		over = o
	}
	if over < 0 {
		return 0
	}
	return over
}

// footer appends the promo block to an approved caption
func (b *Bot) footer(caption string) string {
	s := b.settings
	return fmt.Sprintf("%s\n\n👉 <b>Надіслати новину:</b> <a href='%s'>%s</a>\n⚡ <b>%s:</b> <a href='%s'>%s</a>",
		html.EscapeString(caption),
		s.BotLink, html.EscapeString(s.BotLink),
		html.EscapeString(s.FooterChannelName),
		s.FooterChannelLink, html.EscapeString(s.FooterChannelTitle),
	)
}

// prettyCaption is the header of a post shown to moderators
func prettyCaption(postID int64, user string) string {
	return fmt.Sprintf("📰 <b>НОВИЙ ПОСТ #%d</b>\n👤 Від користувача: @%s\n\n🔍 Модератор, обери дію нижче 👇",
		postID, html.EscapeString(user))
}

func moderationCaption(post models.PendingPost) string {
	return prettyCaption(post.ID, post.Username) + "\n\n📝 " + html.EscapeString(post.Caption)
}

func evidenceCaption(post models.PendingPost, from string) string {
	return fmt.Sprintf("📎 <b>Докази до поста #%d</b>\n👤 Від користувача: @%s", post.ID, html.EscapeString(from))
}

func actionTitle(action models.PaymentAction) string {
	if action == models.ActionDelete {
		return "Видалити"
	}
	return "Дізнатись"
}

func (b *Bot) paymentInstructions(p models.PendingPayment) string {
	return fmt.Sprintf("💰 Для виконання дії <b>%s</b> над постом %d\n"+
		"➤ Сума: %d %s\n"+
		"➤ Проведіть оплату на картку:\n<b>%s</b>\n"+
		"➤ У призначенні платежу вкажіть: \"%s\"\n\n"+
		"🔔 Після оплати: надішліть фото або скрін підтвердження переказу сюди.",
		actionTitle(p.Action), p.TargetMsgID,
		p.Price, html.EscapeString(b.settings.Currency),
		html.EscapeString(b.settings.CardNumber),
		p.Action,
	)
}

func (b *Bot) proofCaption(p models.PendingPayment, from string, at time.Time) string {
	return fmt.Sprintf("💳 Доказ оплати для дії <b>%s</b>\n"+
		"Запитувач: @%s (id: %d)\n"+
		"Цільовий пост: %d\n"+
		"Сума: %d %s\n"+
		"Надіслано: %s",
		p.Action,
		html.EscapeString(from), p.RequesterID,
		p.TargetMsgID,
		p.Price, html.EscapeString(b.settings.Currency),
		at.In(b.settings.Location).Format(timeLayout),
	)
}

// authorInfo lists whichever author fields are known
func (b *Bot) authorInfo(post *models.PublishedPost) string {
	var lines []string
	if post.AuthorUsername != "" {
		lines = append(lines, "👤 Telegram: @"+html.EscapeString(post.AuthorUsername))
	}
	if post.AuthorPhone != "" {
		lines = append(lines, "☎️ Телефон: "+html.EscapeString(post.AuthorPhone))
	}
	if !post.PublishedAt.IsZero() {
		lines = append(lines, "📅 Дата публікації: "+post.PublishedAt.In(b.settings.Location).Format(timeLayout))
	}
	if len(lines) == 0 {
		return textInfoUnavailable
	}
	return "🧾 <b>Інформація про автора:</b>\n" + strings.Join(lines, "\n")
}

func (b *Bot) statusReport(pending []models.PendingPost, stuck []models.PendingPayment, published int) string {
	var sb strings.Builder
	count := "невідомо"
	if published >= 0 {
		count = strconv.Itoa(published)
	}
	fmt.Fprintf(&sb, "📊 <b>Стан бота</b>\nОпубліковано постів у базі: %s\n\n", count)

	fmt.Fprintf(&sb, "📰 Постів на модерації: %d\n", len(pending))
	for _, p := range pending {
		flag := ""
		if p.AwaitingEvidence {
			flag = " 📎"
		}
		fmt.Fprintf(&sb, "• #%d від @%s, %s%s\n", p.ID, html.EscapeString(p.Username),
			p.CreatedAt.In(b.settings.Location).Format(timeLayout), flag)
	}

	fmt.Fprintf(&sb, "\n💳 Оплат без рішення: %d\n", len(stuck))
	for _, p := range stuck {
		fmt.Fprintf(&sb, "• %s, пост %d, запитувач %d, доказ від %s\n", p.Action, p.TargetMsgID, p.RequesterID,
			p.ProofSentAt.In(b.settings.Location).Format(timeLayout))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// displayName is the username when set, otherwise the full name
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return fullName(u)
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

const timeLayout = "2006-01-02 15:04:05"
