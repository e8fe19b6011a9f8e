package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_matches_started_total",
			Help: "Matches created by pairing two waiting participants",
		},
	)
	matchesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_matches_finished_total",
			Help: "Matches played to completion",
		},
		[]string{"result"},
	)
	matchesAbandoned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_matches_abandoned_total",
			Help: "Matches torn down before completion",
		},
		[]string{"reason"},
	)
	roundsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_rounds_resolved_total",
			Help: "Rounds resolved across all sessions",
		},
	)
	deliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_delivery_failures_total",
			Help: "Outbound events the transport refused to deliver",
		},
	)
)

func init() {
	prometheus.MustRegister(matchesStarted)
	prometheus.MustRegister(matchesFinished)
	prometheus.MustRegister(matchesAbandoned)
	prometheus.MustRegister(roundsResolved)
	prometheus.MustRegister(deliveryFailures)
}

// RegisterStats exposes the registry snapshot as gauges. The gauges are read
// on scrape and play no part in matchmaking decisions.
func RegisterStats(reg prometheus.Registerer, m *Matchmaker) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rps_sessions",
			Help: "Sessions currently held in the registry",
		}, func() float64 { return float64(m.Stats().TotalSessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rps_sessions_active",
			Help: "Sessions currently in the playing state",
		}, func() float64 { return float64(m.Stats().ActiveSessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rps_waiting_participants",
			Help: "Participants waiting in the matchmaking queue",
		}, func() float64 { return float64(m.Stats().Waiting) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
