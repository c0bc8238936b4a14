// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	ResultOK        = "ok"
	ResultTruncated = "truncated"
	ResultError     = "error"
)

var (
	// DecodeTotal counts decode attempts by outermost layer and outcome
	DecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktcodec_decode_total",
			Help: "Total number of packets decoded",
		},
		[]string{"layer", "result"},
	)

	// BuildTotal counts builder invocations by outermost layer and outcome
	BuildTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktcodec_build_total",
			Help: "Total number of packets built",
		},
		[]string{"layer", "result"},
	)

	// DecodeBytesTotal counts bytes handed to the decoder
	DecodeBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktcodec_decode_bytes_total",
			Help: "Total number of bytes handed to the decoder",
		},
	)
)

// ObserveDecode records one decode of n bytes.
func ObserveDecode(layer, result string, n int) {
	DecodeTotal.WithLabelValues(layer, result).Inc()
	DecodeBytesTotal.Add(float64(n))
}

// ObserveBuild records one build.
func ObserveBuild(layer, result string) {
	BuildTotal.WithLabelValues(layer, result).Inc()
}
