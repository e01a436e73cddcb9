package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "homeops"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Auth
	AuthOutcomes *prometheus.CounterVec

	// PIN delivery breaker: 0 closed, 1 half open, 2 open
	NotifierBreakerState prometheus.Gauge

	LiveSubscribers prometheus.Gauge
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// bcrypt dominates the auth routes
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "outcomes_total",
				Help:      "Credential operations by op and result.",
			},
			[]string{"op", "result"},
		),
		NotifierBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "notifier",
				Name:      "breaker_state",
				Help:      "PIN delivery circuit breaker state (0 closed, 1 half open, 2 open).",
			},
		),
		LiveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "live",
				Name:      "subscribers",
				Help:      "Open live update streams in this process.",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.AuthOutcomes, p.NotifierBreakerState, p.LiveSubscribers,
	)

	return p
}

// AuthOutcome satisfies credentials.Recorder.
func (p *Prom) AuthOutcome(op, result string) {
	p.AuthOutcomes.WithLabelValues(op, result).Inc()
}

// SetBreakerState maps a breaker state name onto the gauge.
func (p *Prom) SetBreakerState(state string) {
	switch state {
	case "open":
		p.NotifierBreakerState.Set(2)
	case "half_open":
		p.NotifierBreakerState.Set(1)
	default:
		p.NotifierBreakerState.Set(0)
	}
}

// GinHandleMiddleware records request counts and latency per route template.
// Routes in streaming are counted only; they stay out of the latency histogram and in-flight gauge.
func (p *Prom) GinHandleMiddleware(streaming ...string) gin.HandlerFunc {
	long := make(map[string]bool, len(streaming))
	for _, r := range streaming {
		long[r] = true
	}

	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method

		if !long[route] {
			p.InFlight.WithLabelValues(method, route).Inc()
			defer p.InFlight.WithLabelValues(method, route).Dec()
		}

		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		if !long[route] {
			p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		}
	}
}
