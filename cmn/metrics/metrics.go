// Package metrics centralises the prometheus collectors shared across
// sloked's net, kgr/net, and text/cursor packages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FramesDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sloked",
		Name:      "frames_decoded_total",
		Help:      "Frames successfully decoded by the crypto socket transport.",
	}, []string{"type"})

	FrameErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sloked",
		Name:      "frame_errors_total",
		Help:      "Frame decode failures by reason.",
	}, []string{"reason"})

	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sloked",
		Name:      "rpc_calls_total",
		Help:      "Master/slave RPC calls by method and outcome.",
	}, []string{"method", "outcome"})

	RPCLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sloked",
		Name:      "rpc_latency_seconds",
		Help:      "Master/slave RPC round-trip latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	Commits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sloked",
		Name:      "transaction_commits_total",
		Help:      "Transaction stream commits by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(FramesDecoded, FrameErrors, RPCCalls, RPCLatency, Commits)
}
