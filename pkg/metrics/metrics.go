package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsSent counts dispatch attempts by notification type and result
	// (sent|failed|opted_out|scheduled).
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laundrypro_notifications_total",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"type", "result"},
	)

	// NotificationRetries counts retry attempts by outcome (success|failure).
	NotificationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laundrypro_notification_retries_total",
			Help: "Total number of notification retry attempts",
		},
		[]string{"result"},
	)

	// WebhookEvents counts inbound provider webhook deliveries by outcome
	// (processed|rejected|error).
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laundrypro_webhook_events_total",
			Help: "Total number of webhook events received",
		},
		[]string{"result"},
	)

	// ChannelSendDuration measures latency of outbound provider API calls.
	ChannelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laundrypro_channel_send_seconds",
			Help:    "Outbound messaging provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laundrypro_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
