package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds the Prometheus collectors for the service: generic request
// metrics plus the domain counters the report lifecycle increments.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	DBConnPoolStats  *prometheus.GaugeVec

	ReportsSubmitted    prometheus.Counter
	ReportsReviewed     *prometheus.CounterVec
	PointsAwarded       *prometheus.CounterVec
	AchievementsGranted prometheus.Counter
}

// NewMetrics creates the collectors under the mangrovewatch namespace.
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		RequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"method"},
		),
		DBConnPoolStats: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
		ReportsSubmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "reports_submitted_total",
				Help:      "Total number of incident reports submitted",
			},
		),
		ReportsReviewed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "reports_reviewed_total",
				Help:      "Total number of review decisions taken",
			},
			[]string{"decision"},
		),
		PointsAwarded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "points_awarded_total",
				Help:      "Total points awarded, by action tag",
			},
			[]string{"action"},
		),
		AchievementsGranted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mangrovewatch",
				Subsystem: serviceName,
				Name:      "achievements_granted_total",
				Help:      "Total number of achievement grants",
			},
		),
	}
}

// UnaryServerInterceptor instruments unary gRPC requests.
func UnaryServerInterceptor(metrics *Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		method := info.FullMethod

		metrics.RequestsInFlight.WithLabelValues(method).Inc()
		defer metrics.RequestsInFlight.WithLabelValues(method).Dec()

		start := time.Now()
		defer func() {
			metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		}()

		resp, err := handler(ctx, req)

		statusCode := "ok"
		if err != nil {
			st, _ := status.FromError(err)
			statusCode = st.Code().String()
		}
		metrics.RequestCounter.WithLabelValues(method, statusCode).Inc()

		return resp, err
	}
}

// RecordDBPoolStats publishes database connection pool statistics.
func (m *Metrics) RecordDBPoolStats(open, inUse, idle int, waitCount int64, waitDuration time.Duration) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(open))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(waitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(waitDuration.Milliseconds()))
}
