// Package metrics exposes engine counters to Prometheus. All metrics start
// with floodsight_ to mark their origin.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PacketsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodsight_packets_total",
			Help: "Packets processed since start, by traffic class.",
		},
		[]string{"class"},
	)
	BytesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodsight_bytes_total",
			Help: "Bytes processed since start, by traffic class.",
		},
		[]string{"class"},
	)
	ProtocolPackets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodsight_protocol_packets_total",
			Help: "Packets processed since start, by transport protocol.",
		},
		[]string{"protocol"},
	)
	AlertLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsight_alert_level",
			Help: "Current alert level: 0 none, 1 low, 2 medium, 3 high.",
		},
	)
	DetectionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodsight_detection_events_total",
			Help: "Cumulative detection events by rule.",
		},
		[]string{"rule"},
	)
	DetectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floodsight_detection_latency_seconds",
			Help:    "Latency between consecutive detection events.",
			Buckets: []float64{0.02, 0.03, 0.04, 0.05, 0.1, 0.5, 1},
		},
	)
	TrackedSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsight_tracked_sources",
			Help: "Addresses currently tracked in the per-source table.",
		},
	)
	TableExhausted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsight_table_exhausted_total",
			Help: "Insertions rejected because the per-source table was full.",
		},
	)
)
