// Package metrics defines and registers all custom Prometheus metrics for the
// loans API. It is the single source of truth for metric names, labels, and
// help strings. Metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loans_api"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthLoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "inactive" or "error"
var AuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthRegistrationsTotal counts accounts created.
// Label:
//   - role: "Admin" or "User"
var AuthRegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_registrations_total",
		Help:      "Total number of accounts registered, by role.",
	},
	[]string{"role"},
)

// ── Loan metrics ──────────────────────────────────────────────────────────────

// LoansRequestedTotal counts loans created.
var LoansRequestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_requested_total",
		Help:      "Total number of loan requests created.",
	},
)

// LoanDecisionsTotal counts administrator decisions.
// Label:
//   - state: "Accepted" or "Rejected"
var LoanDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_decisions_total",
		Help:      "Total number of loan decisions, by resulting state.",
	},
	[]string{"state"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// LoanEventsPublishedTotal counts loan events handed to the broker.
// Label:
//   - type: "loan.requested" or "loan.decided"
var LoanEventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_events_published_total",
		Help:      "Total number of loan events published.",
	},
	[]string{"type"},
)

// LoanEventsErrorsTotal counts loan events that were not delivered.
// Label:
//   - reason: "queue_full", "stopped" or "publish_failed"
var LoanEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_events_errors_total",
		Help:      "Total number of loan events dropped or failed.",
	},
	[]string{"reason"},
)

// LoanEventsQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var LoanEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "loan_events_queue_depth",
		Help:      "Current number of loan events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
