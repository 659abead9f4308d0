package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Auth
	TokenVerifications *prometheus.CounterVec
	Revocations        *prometheus.CounterVec

	// Cascading deletes
	Deletions        *prometheus.CounterVec
	DeletionDuration *prometheus.HistogramVec
	DeletedRows      *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskmaster",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskmaster",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskmaster",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Subsystem: "auth",
				Name:      "token_verifications_total",
				Help:      "Token verifications by result.",
			},
			[]string{"result"}, // ok|malformed|expired|revoked|cache_error
		),
		Revocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Subsystem: "auth",
				Name:      "revocations_total",
				Help:      "Token revocations written to the revocation cache.",
			},
			[]string{"result"},
		),
		Deletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Subsystem: "hierarchy",
				Name:      "deletions_total",
				Help:      "Cascading deletions by root entity and result.",
			},
			[]string{"entity", "result"}, // result=ok|not_found|storage_error|partial_failure
		),
		DeletionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskmaster",
				Subsystem: "hierarchy",
				Name:      "deletion_duration_seconds",
				Help:      "Wall time of a cascading deletion transaction.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"entity"},
		),
		DeletedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskmaster",
				Subsystem: "hierarchy",
				Name:      "deleted_rows_total",
				Help:      "Rows removed by cascading deletions, by table.",
			},
			[]string{"table"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.TokenVerifications, p.Revocations,
		p.Deletions, p.DeletionDuration, p.DeletedRows,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
