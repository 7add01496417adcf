// Package metrics defines the custom Prometheus metrics of the monitoring API.
// It is the single source of truth for metric names, labels, and help strings.
//
// Metrics register with the default registry on package init via promauto;
// HTTP request metrics are added separately by the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "monitor"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts signup and signin attempts.
// Labels:
//   - action: "SIGNUP" or "SIGNIN"
//   - status: "SUCCESS" or "FAILED"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by action and outcome.",
	},
	[]string{"action", "status"},
)

// AuthAuditWriteFailuresTotal counts audit entries that could not be persisted.
// The auth operation itself still completes.
var AuthAuditWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_audit_write_failures_total",
		Help:      "Total number of auth audit log entries dropped because the write failed.",
	},
)

// PasswordResetEmailsTotal counts reset email dispatches.
// Label:
//   - result: "sent" or "failed"
var PasswordResetEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_emails_total",
		Help:      "Total number of password reset emails, by dispatch result.",
	},
	[]string{"result"},
)

// AuthRateLimitedTotal counts requests rejected by the auth rate limiter.
var AuthRateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rate_limited_total",
		Help:      "Total number of auth requests rejected by the per-IP rate limiter.",
	},
	[]string{"route"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthzDenialsTotal counts device-scope and role denials.
// Label:
//   - role: the caller's role
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of authorization denials, by caller role.",
	},
	[]string{"role"},
)

// ── Telemetry metrics ─────────────────────────────────────────────────────────

// TelemetryIngestedTotal counts records persisted.
// Label:
//   - kind: telemetry kind (e.g. "calls")
var TelemetryIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "telemetry_ingested_total",
		Help:      "Total number of telemetry records persisted, by kind.",
	},
	[]string{"kind"},
)

// TelemetryErrorsTotal counts records that failed ingestion.
// Label:
//   - reason: "insert_failed"
var TelemetryErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "telemetry_errors_total",
		Help:      "Total number of telemetry records that failed ingestion.",
	},
	[]string{"reason"},
)

// TelemetryDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss"
var TelemetryDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "telemetry_dedup_total",
		Help:      "Total number of telemetry deduplication checks, by result (hit/miss).",
	},
	[]string{"result"},
)

// TelemetryQueueDepth tracks records waiting in each dispatcher worker channel.
var TelemetryQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "telemetry_queue_depth",
		Help:      "Current number of records pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// TelemetryProcessingDuration measures dequeue-to-persistence time.
var TelemetryProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "telemetry_processing_duration_seconds",
		Help:      "Duration of telemetry processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
