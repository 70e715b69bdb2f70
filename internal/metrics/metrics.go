// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used with MessagesDropped.
const (
	DropUnknownTarget = "unknown_target"
	DropBufferFull    = "buffer_full"
	DropBadMessage    = "bad_message"
	DropOverRate      = "over_rate"
)

var (
	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_connected_peers",
		Help: "Number of currently registered peers.",
	})

	MessagesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_messages_forwarded_total",
		Help: "Signaling frames successfully forwarded to a target peer.",
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_messages_dropped_total",
		Help: "Inbound frames not forwarded, by reason.",
	}, []string{"reason"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_requests_rate_limited_total",
		Help: "HTTP requests rejected by the per-address rate limiter.",
	})

	SweeperEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_sweeper_evictions_total",
		Help: "Stale peers evicted by the liveness sweeper.",
	})
)
