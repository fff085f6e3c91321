package graph

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "go_pq_cdc_memgraph"

type Metric interface {
	SetProcessLatency(latency int64)
	SetFlushLatency(latency int64)
	PrometheusCollectors() []prometheus.Collector
	AddSuccessOp(stream string, count float64)
	AddErrOp(stream string, count float64)
	AddSkippedOp(stream string)
}

var hostname, _ = os.Hostname()

type metric struct {
	processLatencyNs prometheus.Gauge
	flushLatencyNs   prometheus.Gauge
	totalSuccess     *prometheus.CounterVec
	totalErr         *prometheus.CounterVec
	totalSkipped     *prometheus.CounterVec
	slotName         string
}

func NewMetric(slotName string) Metric {
	return &metric{
		slotName: slotName,
		processLatencyNs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process_latency",
			Name:      "current",
			Help:      "latest memgraph connector process latency in nanoseconds",
			ConstLabels: prometheus.Labels{
				"host":      hostname,
				"slot_name": slotName,
			},
		}),
		flushLatencyNs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flush_latency",
			Name:      "current",
			Help:      "latest statement batch flush latency in nanoseconds",
			ConstLabels: prometheus.Labels{
				"host":      hostname,
				"slot_name": slotName,
			},
		}),
		totalSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "statement",
			Name:      "total",
			Help:      "total number of statements applied to the graph store",
		}, []string{"slot_name", "stream", "host"}),
		totalErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "err",
			Name:      "total",
			Help:      "total number of statement batch flush errors",
		}, []string{"slot_name", "stream", "host"}),
		totalSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "skipped",
			Name:      "total",
			Help:      "total number of change events dropped by the transformation",
		}, []string{"slot_name", "stream", "host"}),
	}
}

func (m *metric) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.processLatencyNs,
		m.flushLatencyNs,
		m.totalSuccess,
		m.totalErr,
		m.totalSkipped,
	}
}

func (m *metric) SetProcessLatency(latency int64) {
	m.processLatencyNs.Set(float64(latency))
}

func (m *metric) SetFlushLatency(latency int64) {
	m.flushLatencyNs.Set(float64(latency))
}

func (m *metric) AddSuccessOp(stream string, count float64) {
	m.totalSuccess.WithLabelValues(m.slotName, stream, hostname).Add(count)
}

func (m *metric) AddErrOp(stream string, count float64) {
	m.totalErr.WithLabelValues(m.slotName, stream, hostname).Add(count)
}

func (m *metric) AddSkippedOp(stream string) {
	m.totalSkipped.WithLabelValues(m.slotName, stream, hostname).Inc()
}
