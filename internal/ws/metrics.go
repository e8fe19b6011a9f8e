package ws

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Process-wide connection counters. Read by /stats and /metrics only.
var (
	connCurrent   atomic.Int64
	connPeak      atomic.Int64
	connTotal     atomic.Int64
	messagesTotal atomic.Int64
)

type ConnStats struct {
	Connections     int64 `json:"connections"`
	PeakConnections int64 `json:"peak_connections"`
	TotalAccepted   int64 `json:"total_connections"`
	TotalMessages   int64 `json:"total_messages"`
}

func Counters() ConnStats {
	return ConnStats{
		Connections:     connCurrent.Load(),
		PeakConnections: connPeak.Load(),
		TotalAccepted:   connTotal.Load(),
		TotalMessages:   messagesTotal.Load(),
	}
}

func connOpened() {
	connTotal.Add(1)
	n := connCurrent.Add(1)
	for {
		peak := connPeak.Load()
		if n <= peak || connPeak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func connClosed() {
	connCurrent.Add(-1)
}

func init() {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rps_ws_connections",
			Help: "Open websocket connections",
		}, func() float64 { return float64(connCurrent.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rps_ws_connections_peak",
			Help: "Highest number of simultaneous websocket connections",
		}, func() float64 { return float64(connPeak.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "rps_ws_connections_total",
			Help: "Websocket connections accepted",
		}, func() float64 { return float64(connTotal.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "rps_ws_messages_total",
			Help: "Inbound websocket frames handled",
		}, func() float64 { return float64(messagesTotal.Load()) }),
	)
}
