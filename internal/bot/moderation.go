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
)

// handleApprove publishes a pending post to the channel. The post becomes approved only
// once the channel accepted it; a failed publish leaves it pending with its keyboard.
func (b *Bot) handleApprove(ctx context.Context, query *tgbotapi.CallbackQuery, postID int64) {
	post, err := b.state.BeginApproval(postID)
	if err != nil {
		b.answerPostError(query, err)
		return
	}

	published := false
	defer func() { b.state.FinishApproval(postID, published) }()

	modName := b.moderatorName(query.From)
	sent, err := b.sendPostMedia(b.settings.ChannelID, post.Media, b.footer(post.Caption))
	if err != nil {
		moderationDecisions.WithLabelValues("publish_failed").Inc()
		b.logger.Error("Failed to publish post",
			zap.Error(err),
			zap.Int64("post_id", postID),
			zap.Int64("channel_id", b.settings.ChannelID),
		)
		b.audit.Record(audit.Entry{
			Action:    audit.ActionPublishFailed,
			Moderator: modName,
			User:      strconv.FormatInt(post.UserID, 10),
			Extra:     fmt.Sprintf("post_id=%d, err=%v", postID, err),
		})
		b.answer(query, textPublishFailed, true)
		return
	}
	published = true

	record := models.PublishedPost{
		MessageID:      sent.MessageID,
		PostID:         post.ID,
		AuthorID:       post.UserID,
		AuthorUsername: post.Username,
		AuthorPhone:    post.AuthorPhone,
		PublishedAt:    b.now(),
		ChannelID:      b.settings.ChannelID,
		Caption:        post.Caption,
	}
	alert := textApprovedAlert
	if err := b.db.SavePost(ctx, record); err != nil {
		b.logger.Error("Failed to save published post",
			zap.Error(err),
			zap.Int64("post_id", postID),
			zap.Int("message_id", sent.MessageID),
		)
		alert = textApprovedNoSave
	}

	b.clearKeyboard(query)
	b.notify(post.UserID, textApprovedUser)
	moderationDecisions.WithLabelValues("approved").Inc()
	b.audit.Record(audit.Entry{
		Action:    audit.ActionPostApproved,
		Moderator: modName,
		User:      strconv.FormatInt(post.UserID, 10),
		Extra:     fmt.Sprintf("post_id=%d, channel_msg_id=%d", postID, sent.MessageID),
	})
	b.answer(query, alert, true)
}

// handleReject rejects a pending post
func (b *Bot) handleReject(query *tgbotapi.CallbackQuery, postID int64) {
	post, err := b.state.Reject(postID)
	if err != nil {
		b.answerPostError(query, err)
		return
	}

	b.clearKeyboard(query)
	b.notify(post.UserID, textRejectedUser)
	moderationDecisions.WithLabelValues("rejected").Inc()
	b.audit.Record(audit.Entry{
		Action:    audit.ActionPostRejected,
		Moderator: b.moderatorName(query.From),
		User:      strconv.FormatInt(post.UserID, 10),
		Extra:     fmt.Sprintf("post_id=%d", postID),
	})
	b.answer(query, textRejectedAlert, true)
}

// handleRequestEvidence asks the author for supporting media. The next media the author
// sends is forwarded as evidence instead of becoming a new post.
func (b *Bot) handleRequestEvidence(query *tgbotapi.CallbackQuery, postID int64) {
	post, err := b.state.RequestEvidence(postID, query.From.ID)
	if err != nil {
		b.answerPostError(query, err)
		return
	}

	b.notify(post.UserID, fmt.Sprintf(textEvidenceUser, postID))
	moderationDecisions.WithLabelValues("evidence_requested").Inc()
	b.audit.Record(audit.Entry{
		Action:    audit.ActionEvidenceRequested,
		Moderator: b.moderatorName(query.From),
		User:      strconv.FormatInt(post.UserID, 10),
		Extra:     fmt.Sprintf("post_id=%d", postID),
	})
	b.answer(query, textEvidenceAlert, true)
}

func (b *Bot) answerPostError(query *tgbotapi.CallbackQuery, err error) {
	switch {
	case errors.Is(err, state.ErrInProgress):
		b.answer(query, textPostPublishing, true)
	case errors.Is(err, state.ErrNotFound), errors.Is(err, state.ErrAlreadyProcessed):
		b.answer(query, textPostProcessed, true)
	default:
		b.logger.Error("Unexpected moderation error", zap.Error(err), zap.String("data", query.Data))
		b.answer(query, textError, true)
	}
}
