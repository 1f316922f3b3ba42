package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "tipscope"

// Metrics holds the pipeline's prometheus collectors. A nil *Metrics is
// valid and records nothing, which keeps tests free of registries.
type Metrics struct {
	rpcCalls       *prometheus.CounterVec
	windowsFetched *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	eventsMerged   prometheus.Counter
	cursorHeight   prometheus.Gauge
	headHeight     prometheus.Gauge
}

// New creates a Metrics instance and registers all collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total RPC calls by method, endpoint, and status",
		}, []string{"method", "endpoint", "status"}),
		windowsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "windows_total",
			Help:      "Total fetch windows by outcome",
		}, []string{"status"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetches_total",
			Help:      "Total full and delta fetches by mode and status",
		}, []string{"mode", "status"}),
		eventsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_merged_total",
			Help:      "Total events merged into the authoritative list",
		}),
		cursorHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cursor_height",
			Help:      "Highest fully synced height",
		}),
		headHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "head_height",
			Help:      "Last observed remote head height",
		}),
	}

	err := errors.Join(
		reg.Register(m.rpcCalls),
		reg.Register(m.windowsFetched),
		reg.Register(m.fetches),
		reg.Register(m.eventsMerged),
		reg.Register(m.cursorHeight),
		reg.Register(m.headHeight),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRPCCall records one RPC call outcome against one endpoint.
func (m *Metrics) RecordRPCCall(method, endpoint string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.rpcCalls.WithLabelValues(method, endpoint, status).Inc()
}

// RecordWindow records a fetch window outcome ("ok", "skipped", or "indexing").
func (m *Metrics) RecordWindow(status string) {
	if m == nil {
		return
	}
	m.windowsFetched.WithLabelValues(status).Inc()
}

// RecordFetch records a full or delta fetch outcome.
func (m *Metrics) RecordFetch(mode string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.fetches.WithLabelValues(mode, status).Inc()
}

// RecordMerge records merged events and the advanced cursor.
func (m *Metrics) RecordMerge(count int, cursor uint64) {
	if m == nil {
		return
	}
	m.eventsMerged.Add(float64(count))
	m.cursorHeight.Set(float64(cursor))
}

// SetHeadHeight records the last observed remote head.
func (m *Metrics) SetHeadHeight(head uint64) {
	if m == nil {
		return
	}
	m.headHeight.Set(float64(head))
}
