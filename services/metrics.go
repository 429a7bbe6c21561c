package services

import (
	"novascp/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransferMetrics counts transfers as they move through the engine
type TransferMetrics struct {
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	active   prometheus.Gauge
}

// NewTransferMetrics registers the transfer collectors on reg
func NewTransferMetrics(reg prometheus.Registerer) *TransferMetrics {
	reg = prometheus.WrapRegistererWithPrefix("novascp_", reg)
	f := promauto.With(reg)

	return &TransferMetrics{
		started: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_started_total",
			Help: "Transfers started, by direction.",
		}, []string{"direction"}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_finished_total",
			Help: "Transfers that reached a terminal status, by status.",
		}, []string{"status"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "transfers_active",
			Help: "Transfers currently in progress.",
		}),
	}
}

func (m *TransferMetrics) transferStarted(direction types.Direction) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(string(direction)).Inc()
	m.active.Inc()
}

func (m *TransferMetrics) transferFinished(status types.TransferStatus) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(string(status)).Inc()
	m.active.Dec()
}
