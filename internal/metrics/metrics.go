// Package metrics регистрирует метрики Prometheus приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests число обработанных запросов по маршруту и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "messenger",
		Name:      "http_requests_total",
		Help:      "Processed HTTP requests.",
	}, []string{"method", "route", "status"})

	// HTTPDuration длительность обработки запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "messenger",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// WSConnections открытые websocket-соединения на экземпляре.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "messenger",
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	})

	// RealtimeEvents события доставки по результату: sent или failed.
	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "messenger",
		Name:      "realtime_events_total",
		Help:      "Real-time events emitted to participants.",
	}, []string{"result"})

	// FeedbackEvents публикации и обработки событий обратной связи.
	FeedbackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "messenger",
		Name:      "feedback_events_total",
		Help:      "Feedback events by stage and result.",
	}, []string{"stage", "result"})
)
