package solanaapi

import (
	"strconv"
	"time"

	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 暴露 requests_total / request_duration_ms / request_errors_total。
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewMetrics 在注册器中注册三类指标，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and HTTP status",
		}, []string{"route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solana_api",
			Name:      "request_duration_ms",
			Help:      "Handler latency in milliseconds",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_api",
			Name:      "request_errors_total",
			Help:      "Rejected requests by route and error code",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(m.requests, m.latency, m.errors)
	return m
}

func (m *Metrics) observe(route string, status int, code apierrors.Code, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds() * 1000)
	if code != "" {
		m.errors.WithLabelValues(route, string(code)).Inc()
	}
}
