package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	joinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "join",
			Name:      "requests_total",
			Help:      "Join attempts by outcome.",
		},
		[]string{"outcome"},
	)

	idempotentReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "join",
			Name:      "idempotent_replays_total",
			Help:      "Join responses replayed from the idempotency store.",
		},
	)

	referralClicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "referral",
			Name:      "clicks_total",
			Help:      "Referral link clicks recorded.",
		},
	)

	referralSignups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "referral",
			Name:      "signups_credited_total",
			Help:      "Signup credits written to referral events.",
		},
	)

	leaderboardCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "leaderboard",
			Name:      "cache_lookups_total",
			Help:      "Leaderboard cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		prometheus.NewGoCollector(),
		joinsTotal,
		idempotentReplays,
		referralClicks,
		referralSignups,
		leaderboardCache,
	)
}

// RecordJoinOutcome counts a join attempt ("ok", "replayed", or an error code).
func RecordJoinOutcome(outcome string) {
	joinsTotal.WithLabelValues(outcome).Inc()
	if outcome == "replayed" {
		idempotentReplays.Inc()
	}
}
