package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Scraper / deals
	dealsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deals_created_total",
			Help: "Total number of new deals discovered.",
		},
	)
	priceObservations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deal_price_observations_total",
			Help: "Total number of price history points recorded.",
		},
	)
	dealsDeactivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deals_deactivated_total",
			Help: "Total number of deals retired by end-of-pass cleanup.",
		},
	)
	scrapePassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_pass_duration_seconds",
			Help:    "Duration of one full scrape pass (seconds).",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600, 7200},
		},
	)
	activeDeals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deals_active_count",
			Help: "Current number of active deals.",
		},
	)

	// Matching
	matchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_created_total",
			Help: "Total number of new (signal, deal) matches recorded.",
		},
	)
	signalEvalErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_eval_errors_total",
			Help: "Total number of signals skipped due to evaluation errors.",
		},
	)

	// Kafka
	kafkaMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_sent_total",
			Help: "Total number of Kafka deal events successfully sent.",
		},
	)
	kafkaErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Total number of Kafka-related errors.",
		},
		[]string{"component", "operation"},
	)

	// Outbox
	outboxStatusCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbox_messages_count",
			Help: "Current count of outbox messages by status.",
		},
		[]string{"status"},
	)
	outboxSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_sent_total",
			Help: "Total number of outbox messages delivered.",
		},
	)
	outboxDeadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_dead_total",
			Help: "Total number of outbox messages that exhausted retries.",
		},
	)
	outboxRetryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retries_total",
			Help: "Total number of outbox delivery retries (failed attempts).",
		},
	)
	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_escalations_total",
			Help: "Total number of admin alerts enqueued for dead messages.",
		},
	)
	outboxProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_processing_duration_seconds",
			Help:    "Time spent delivering a single outbox message (seconds).",
			Buckets: prometheus.DefBuckets,
		},
	)
	outboxLagSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_lag_seconds",
			Help:    "Lag between outbox message creation and delivery attempt (seconds).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			dealsCreated,
			priceObservations,
			dealsDeactivated,
			scrapePassDuration,
			activeDeals,

			matchesCreated,
			signalEvalErrors,

			kafkaMessagesSent,
			kafkaErrors,

			outboxStatusCount,
			outboxSentTotal,
			outboxDeadTotal,
			outboxRetryTotal,
			escalationsTotal,
			outboxProcessingDuration,
			outboxLagSeconds,
		)
		registerRedisMetrics()
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route, code string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// --- Scraper / deals ---
func IncDealObserved(created bool) {
	if created {
		dealsCreated.Inc()
	}
	priceObservations.Inc()
}
func AddDealsDeactivated(n int) {
	if n > 0 {
		dealsDeactivated.Add(float64(n))
	}
}
func ObserveScrapePass(d time.Duration) { scrapePassDuration.Observe(d.Seconds()) }
func SetActiveDealsCount(count int64) {
	if count < 0 {
		count = 0
	}
	activeDeals.Set(float64(count))
}

// --- Matching ---
func IncMatchCreated()     { matchesCreated.Inc() }
func IncSignalEvalError()  { signalEvalErrors.Inc() }

// --- Kafka ---
func IncKafkaSent() { kafkaMessagesSent.Inc() }
func IncKafkaError(component, operation string) {
	kafkaErrors.WithLabelValues(component, operation).Inc()
}

// --- Outbox ---
func IncOutboxSent()                          { outboxSentTotal.Inc() }
func IncOutboxDead()                          { outboxDeadTotal.Inc() }
func IncOutboxRetry()                         { outboxRetryTotal.Inc() }
func IncEscalation()                          { escalationsTotal.Inc() }
func ObserveOutboxProcessing(d time.Duration) { outboxProcessingDuration.Observe(d.Seconds()) }
func ObserveOutboxLagSeconds(sec float64) {
	if sec < 0 {
		sec = 0
	}
	outboxLagSeconds.Observe(sec)
}
func SetOutboxStatusCount(status string, count int64) {
	if count < 0 {
		count = 0
	}
	outboxStatusCount.WithLabelValues(status).Set(float64(count))
}
