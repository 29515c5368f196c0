// Package metrics declares the relay's prometheus collectors. They register
// with the default registry and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mc_relay"

// Send results recorded in MailChannelsSendTotal.
const (
	ResultSent           = "sent"
	ResultRejected       = "rejected"
	ResultTransportError = "transport_error"
)

// Outbound MailChannels calls.
var (
	MailChannelsSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mailchannels",
		Name:      "send_total",
		Help:      "MailChannels send attempts by result.",
	}, []string{"result"})

	MailChannelsSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mailchannels",
		Name:      "send_duration_seconds",
		Help:      "Latency of MailChannels send requests.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	MailChannelsRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mailchannels",
		Name:      "rejections_total",
		Help:      "Non-2xx MailChannels responses by status code.",
	}, []string{"status", "permanent"})

	MailChannelsRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mailchannels",
		Name:      "recipients_per_message",
		Help:      "to, cc and bcc recipients per message.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
	})
)

// RateLimitedTotal counts sends refused by the per-client limit, by ingress.
var RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "delivery",
	Name:      "rate_limited_total",
	Help:      "Sends refused by the per-client rate limit.",
}, []string{"source"})

// SMTP ingress.
var (
	SMTPConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smtp",
		Name:      "connections_total",
		Help:      "SMTP connections by admission status.",
	}, []string{"status"}) // accepted, rejected

	SMTPActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "smtp",
		Name:      "active_sessions",
		Help:      "Open SMTP sessions.",
	})

	SMTPAuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smtp",
		Name:      "auth_attempts_total",
		Help:      "SMTP AUTH attempts by result.",
	}, []string{"result"}) // success, failure

	SMTPMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smtp",
		Name:      "messages_total",
		Help:      "Messages received over SMTP by outcome.",
	}, []string{"result"}) // relayed, rejected, deferred, invalid
)

// HTTP API.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "API requests by route and status.",
	}, []string{"method", "path", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Latency of API requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)
