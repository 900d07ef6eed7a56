// Package observability provides structured logging and Prometheus metrics
// for the Roster membership service.
//
// # Logging
//
// The Logger wraps log/slog with a JSON handler and chainable context fields:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org_id", orgID).Info("organization created")
//
// Loggers propagate through context so handlers pick up the request ID set
// by the HTTP middleware:
//
//	log := observability.FromContext(ctx)
//	log.WithError(err).Error("approve join request failed")
//
// # Metrics
//
// NewMetrics registers counters and histograms on a Prometheus registry:
//
//   - roster_http_requests_total / roster_http_request_duration_seconds
//   - roster_permission_checks_total (by permission name and outcome)
//   - roster_join_requests_total (by transition: submitted, approved, rejected)
//   - roster_role_writes_total, roster_members_added_total
//   - roster_db_connections_* pool gauges
//
// The permission-check counters are the primary signal for the read path:
// the evaluator is called on nearly every request in the surrounding
// application, so its latency histogram is deliberately fine-grained.
package observability
