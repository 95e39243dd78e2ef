package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/models"
)

// handleMedia routes a photo or video from a private chat
func (b *Bot) handleMedia(message *tgbotapi.Message) {
	if message.MediaGroupID != "" {
		b.albums.add(message)
		return
	}

	item, ok := mediaOf(message)
	if !ok {
		return
	}
	if b.trySubmitProof(message, []models.MediaItem{item}) {
		return
	}
	if b.tryForwardEvidence(message, []models.MediaItem{item}) {
		return
	}
	b.submitSingle(message, item)
}

func (b *Bot) submitSingle(message *tgbotapi.Message, item models.MediaItem) {
	if strings.TrimSpace(message.Caption) == "" {
		b.reply(message.Chat.ID, textNoCaption)
		return
	}

	user := message.From
	post, ok := b.addPost(models.PendingPost{
		UserID:      user.ID,
		Username:    displayName(user),
		AuthorPhone: b.state.Phone(user.ID),
		Caption:     message.Caption,
		Media:       []models.MediaItem{item},
		CreatedAt:   b.now(),
	}, message.Chat.ID)
	if !ok {
		return
	}

	if _, err := b.sendMedia(b.settings.ModerationGroup, item, moderationCaption(post), moderationKeyboard(post.ID)); err != nil {
		b.abandonPost(post, message.Chat.ID, err)
		return
	}

	postsSubmitted.WithLabelValues(string(item.Kind)).Inc()
	b.reply(message.Chat.ID, textPostSubmitted)
	b.audit.Record(audit.Entry{
		Action: audit.ActionPostSubmitted,
		User:   strconv.FormatInt(user.ID, 10),
		Extra:  "post_id=" + strconv.FormatInt(post.ID, 10),
	})
	b.logger.Info("Post submitted for moderation",
		zap.Int64("post_id", post.ID),
		zap.Int64("user_id", user.ID),
		zap.String("kind", string(item.Kind)),
	)
}

// addPost checks the caption length, registers the post and persists its id so the id is
// never handed out again after a restart. It replies to the user when the post is refused.
func (b *Bot) addPost(draft models.PendingPost, chatID int64) (models.PendingPost, bool) {
	draft.ID = b.state.LastPostID() + 1
	if over := b.captionOverflow(draft); over > 0 {
		b.reply(chatID, fmt.Sprintf(textCaptionTooLong, utf16Len(draft.Caption)-over))
		return models.PendingPost{}, false
	}

	post := b.state.AddPendingPost(draft)
	if err := b.db.ReservePostID(context.Background(), post.ID); err != nil {
		b.abandonPost(post, chatID, fmt.Errorf("failed to reserve post id: %w", err))
		return models.PendingPost{}, false
	}
	return post, true
}

// abandonPost closes a post the moderators never received so it does not linger as pending
func (b *Bot) abandonPost(post models.PendingPost, chatID int64, cause error) {
	b.logger.Error("Failed to submit post to moderation",
		zap.Error(cause),
		zap.Int64("post_id", post.ID),
		zap.Int64("user_id", post.UserID),
	)
	if _, err := b.state.Reject(post.ID); err != nil {
		b.logger.Warn("Failed to close undelivered post", zap.Error(err), zap.Int64("post_id", post.ID))
	}
	b.reply(chatID, textSubmitFailed)
}

// tryForwardEvidence sends media to moderation as evidence when a moderator asked the
// sender for it. It reports whether the media was consumed.
func (b *Bot) tryForwardEvidence(message *tgbotapi.Message, items []models.MediaItem) bool {
	user := message.From
	post, ok := b.state.TakeEvidenceRequest(user.ID)
	if !ok {
		return false
	}

	caption := evidenceCaption(post, displayName(user))
	if _, err := b.sendPostMedia(b.settings.ModerationGroup, items, caption); err != nil {
		b.logger.Error("Failed to forward evidence",
			zap.Error(err),
			zap.Int64("post_id", post.ID),
			zap.Int64("user_id", user.ID),
		)
		// Keep the request open so the user can resend
		if _, err := b.state.RequestEvidence(post.ID, post.EvidenceRequestedBy); err != nil {
			b.logger.Warn("Failed to restore evidence request", zap.Error(err), zap.Int64("post_id", post.ID))
		}
		b.reply(message.Chat.ID, textEvidenceFailed)
		return true
	}

	b.reply(message.Chat.ID, textEvidenceSent)
	b.audit.Record(audit.Entry{
		Action: audit.ActionEvidenceSent,
		User:   strconv.FormatInt(user.ID, 10),
		Extra:  "post_id=" + strconv.FormatInt(post.ID, 10) + ", items=" + strconv.Itoa(len(items)),
	})
	return true
}
