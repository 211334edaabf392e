package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	redisRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_requests_total",
			Help: "Total number of Redis cache requests.",
		},
		[]string{"operation"},
	)
	redisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis cache errors.",
		},
		[]string{"operation"},
	)
	redisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_request_duration_seconds",
			Help:    "Redis request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	redisHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_hits_total",
			Help: "Total number of cache hits.",
		},
	)
	redisMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of cache misses.",
		},
	)
	redisCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_cache_size_bytes",
			Help: "Redis used memory in bytes.",
		},
	)
)

var redisRegisterOnce sync.Once

func registerRedisMetrics() {
	redisRegisterOnce.Do(func() {
		prometheus.MustRegister(
			redisRequests,
			redisErrors,
			redisDuration,
			redisHits,
			redisMisses,
			redisCacheSize,
		)
	})
}

func IncRedisRequest(operation string) { redisRequests.WithLabelValues(operation).Inc() }
func IncRedisHit()                     { redisHits.Inc() }
func IncRedisMiss()                    { redisMisses.Inc() }
func IncRedisError(operation string)   { redisErrors.WithLabelValues(operation).Inc() }
func ObserveRedisDuration(operation string, d time.Duration) {
	redisDuration.WithLabelValues(operation).Observe(d.Seconds())
}
func SetRedisCacheSizeBytes(n int64) {
	if n < 0 {
		n = 0
	}
	redisCacheSize.Set(float64(n))
}
