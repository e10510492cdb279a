package panel

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xmobile",
			Subsystem: "panel",
			Name:      "requests_total",
			Help:      "Panel API calls by operation and result.",
		},
		[]string{"op", "result"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xmobile",
			Subsystem: "panel",
			Name:      "request_duration_seconds",
			Help:      "Panel API call latency in seconds, retries included.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
	// Up is set by the health probe job: 1 reachable, 0 not.
	Up = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xmobile",
			Subsystem: "panel",
			Name:      "up",
			Help:      "Whether the last panel health probe succeeded.",
		},
	)
)

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	}
	return "error"
}
