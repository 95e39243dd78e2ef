package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var updatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsbot_updates_handled_total",
	Help: "Number of Telegram updates handled",
}, []string{"type"})

var handlerPanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsbot_handler_panics_total",
	Help: "Number of panics recovered in update handlers",
})

var postsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsbot_posts_submitted_total",
	Help: "Number of posts sent to moderation",
}, []string{"kind"})

var moderationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsbot_moderation_decisions_total",
	Help: "Number of moderator decisions on submitted posts",
}, []string{"decision"})

var paymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsbot_payment_events_total",
	Help: "Number of paid-action events by action and outcome",
}, []string{"action", "outcome"})

var notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsbot_notify_failures_total",
	Help: "Number of best-effort user notifications that failed",
})

var pollingRestarts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsbot_polling_restarts_total",
	Help: "Number of times long polling was restarted after a failure",
})

var webhookQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "newsbot_webhook_queue_depth",
	Help: "Number of webhook updates waiting for the worker",
})
