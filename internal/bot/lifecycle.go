package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var errUpdatesClosed = errors.New("updates channel closed")

var allowedUpdates = []string{"message", "callback_query"}

// Start runs the bot in polling mode until ctx is cancelled. Polling that fails is
// restarted after RestartDelay.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot in polling mode")

	delay := b.settings.RestartDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(delay), ctx)

	err := backoff.RetryNotify(func() error {
		return b.poll(ctx)
	}, policy, func(err error, next time.Duration) {
		pollingRestarts.Inc()
		b.logger.Warn("Polling failed, restarting", zap.Error(err), zap.Duration("delay", next))
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Bot) poll(ctx context.Context) error {
	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = allowedUpdates

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return errUpdatesClosed
			}
			b.HandleUpdate(update)
		}
	}
}

// StartWebhook sets up the bot to receive updates via webhook
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + WebhookPath)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	webhookConfig.MaxConnections = 40
	webhookConfig.AllowedUpdates = allowedUpdates

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}
	return nil
}

// Enqueue hands a webhook update to the worker. It reports false when the queue is full.
func (b *Bot) Enqueue(update tgbotapi.Update) bool {
	select {
	case b.updates <- update:
		webhookQueueDepth.Inc()
		return true
	default:
		return false
	}
}

// RunWorker handles queued webhook updates one at a time until ctx is cancelled
func (b *Bot) RunWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-b.updates:
			webhookQueueDepth.Dec()
			b.HandleUpdate(update)
		}
	}
}

// Shutdown flushes albums still waiting for their quiet period
func (b *Bot) Shutdown() {
	if n := b.albums.pending(); n > 0 {
		b.logger.Info("Flushing buffered albums", zap.Int("albums", n))
	}
	b.albums.drain()
}
