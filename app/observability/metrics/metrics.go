package metrics

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal          metric.Int64Counter
	HTTPRequestDurationSeconds metric.Float64Histogram
	DbQueryDurationSeconds     metric.Float64Histogram
	DbQueryErrorsTotal         metric.Int64Counter
	CacheHitsTotal             metric.Int64Counter
	CacheMissesTotal           metric.Int64Counter
	BroadcastEventsTotal       metric.Int64Counter
	NotificationsSentTotal     metric.Int64Counter
	NotificationFailuresTotal  metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("taskflow-api")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDurationSeconds, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"response_cache_hits_total",
			metric.WithDescription("Responses served from the side cache"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_hits_total: %v", err)
		}

		m.CacheMissesTotal, err = meter.Int64Counter(
			"response_cache_misses_total",
			metric.WithDescription("Cacheable requests that missed the side cache"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_misses_total: %v", err)
		}

		m.BroadcastEventsTotal, err = meter.Int64Counter(
			"broadcast_events_total",
			metric.WithDescription("Task events fanned out to websocket clients"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create broadcast_events_total: %v", err)
		}

		m.NotificationsSentTotal, err = meter.Int64Counter(
			"notifications_sent_total",
			metric.WithDescription("Outbound notifications delivered"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create notifications_sent_total: %v", err)
		}

		m.NotificationFailuresTotal, err = meter.Int64Counter(
			"notification_failures_total",
			metric.WithDescription("Outbound notifications that failed"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create notification_failures_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics.InitAppMetrics must be called before metrics.Get")
	}
	return appMetrics
}

// RequestMetrics is a chi middleware recording request counts and latencies
// per method/route/status.
func RequestMetrics() func(next http.Handler) http.Handler {
	m := Get()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", r.URL.Path),
				attribute.String("status", strconv.Itoa(ww.Status())),
			)
			m.HTTPRequestsTotal.Add(r.Context(), 1, attrs)
			m.HTTPRequestDurationSeconds.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}
