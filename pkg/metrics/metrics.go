package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustweave_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// WizardSubmissions counts wizard submissions and their outcome (success|failure).
	WizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustweave_wizard_submissions_total",
			Help: "Total number of verification wizard submissions",
		},
		[]string{"result"},
	)

	// StatusUpdates counts admin status decisions by resulting status.
	StatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustweave_status_updates_total",
			Help: "Total number of admin verification status updates",
		},
		[]string{"status"},
	)

	// LedgerTransactions counts simulated ledger submissions and lookups.
	LedgerTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustweave_ledger_transactions_total",
			Help: "Total number of simulated ledger operations",
		},
		[]string{"operation"},
	)

	// DashboardRefreshes counts reconciler refreshes by trigger (interval|manual|converge).
	DashboardRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustweave_dashboard_refreshes_total",
			Help: "Total number of admin dashboard record refreshes",
		},
		[]string{"trigger"},
	)

	// ActiveSessions tracks the number of live user sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trustweave_active_sessions",
			Help: "Number of active user sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustweave_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
