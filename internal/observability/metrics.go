// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login attempts by result (success, failure).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamly_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	// Registrations counts created accounts.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dreamly_registrations_total",
		Help: "Accounts registered",
	})

	// PostsCreated counts published posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dreamly_posts_created_total",
		Help: "Posts published",
	})

	// ToggleActions counts like and follow toggles by resulting action.
	ToggleActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamly_toggle_actions_total",
		Help: "Like and follow toggles by resulting action",
	}, []string{"action"})

	// ImageGenerationDuration records provider latency by outcome.
	ImageGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dreamly_image_generation_duration_seconds",
		Help:    "Image provider call latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"outcome"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamly_redis_errors_total",
		Help: "Redis errors by command",
	}, []string{"command"})

	// RateLimitRejections counts requests refused by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamly_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dreamly_websocket_connections",
		Help: "Open notification websocket connections",
	})

	// WebSocketBackpressureDrops counts notifications dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamly_websocket_backpressure_drops_total",
		Help: "Notifications dropped due to backpressure",
	}, []string{"reason"})
)
