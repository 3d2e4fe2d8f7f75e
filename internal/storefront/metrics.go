package storefront

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_client_requests_total",
			Help: "Storefront API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_client_request_duration_seconds",
			Help:    "Storefront API call latency in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

func observe(op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if kind := apperrors.KindOf(err); kind != apperrors.KindNone {
		outcome = string(kind)
	}
	requestsTotal.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
