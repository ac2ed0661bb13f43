package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Parse and commit outcomes are labeled by result so failed uploads and
// rejected writes show up separately on the dashboard.
var (
	Parses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_parses_total",
		Help: "Participant file parses by result (ok, empty, error).",
	}, []string{"result"})

	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_commits_total",
		Help: "Attendance commits to the backend API by result (ok, error).",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reconcile_active_sessions",
		Help: "Reconciliation sessions currently held in memory.",
	})
)
