package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candles_total", Help: "Closed candles accepted into the window"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals admitted by the gate"},
		[]string{"symbol", "side"},
	)
	SignalsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_suppressed_total", Help: "Candidates suppressed by the gate"},
		[]string{"symbol", "reason"},
	)
	NotifyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_failures_total", Help: "Signals the notifier failed to deliver"},
		[]string{"symbol"},
	)
	ReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reconnects_total", Help: "Live stream reconnect attempts"},
		[]string{"symbol"},
	)
	BackfillFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backfill_failures_total", Help: "Failed backfill attempts"},
		[]string{"symbol"},
	)
	PipelineState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "pipeline_state", Help: "Current pipeline state per symbol (models.PipelineState)"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		CandlesTotal,
		SignalsTotal,
		SignalsSuppressedTotal,
		NotifyFailuresTotal,
		ReconnectsTotal,
		BackfillFailuresTotal,
		PipelineState,
	)
}

// Handler: promhttp для подключения к админскому mux.
func Handler() http.Handler {
	return promhttp.Handler()
}
