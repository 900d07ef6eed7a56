// Package config loads rosterd configuration from the environment, with an
// optional YAML file providing base values that environment variables
// override.
//
// # Configuration Structure
//
// Server settings:
//
//	ROSTER_HOST="0.0.0.0"
//	ROSTER_PORT="8080"
//	ROSTER_METRICS_PORT="9090"
//	ROSTER_SHUTDOWN_TIMEOUT="15s"
//
// Database settings:
//
//	ROSTER_DATABASE_URL="postgres://localhost/roster"
//	ROSTER_DATABASE_REPLICA_URLS="postgres://replica1/roster,postgres://replica2/roster"
//	ROSTER_DATABASE_MAX_CONNS="20"
//	ROSTER_DATABASE_MIN_CONNS="2"
//	ROSTER_DATABASE_TIMEOUT="5s"
//	ROSTER_DATABASE_MAX_LIFETIME="30m"
//	ROSTER_DATABASE_MAX_IDLE_TIME="5m"
//
// Rate limiting (join-request submission):
//
//	ROSTER_REDIS_URL="redis://localhost:6379"
//	ROSTER_JOIN_RATE_LIMIT="10"
//	ROSTER_JOIN_RATE_WINDOW="1m"
//	ROSTER_RATE_LIMIT_DISABLED="false"
//
// Identity resolution:
//
//	ROSTER_IDENTITY_URL="http://identity.internal/v1/lookup"  # empty disables enrichment
//	ROSTER_IDENTITY_TIMEOUT="5s"
//
// Audit retention:
//
//	ROSTER_AUDIT_RETENTION="2160h"       # 90 days
//	ROSTER_AUDIT_PURGE_SCHEDULE="0 3 * * *"
//
// Observability:
//
//	ROSTER_LOG_LEVEL="info"  # debug, info, warn, error
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("listening on %s, metrics on %s\n", cfg.Addr(), cfg.MetricsAddr())
//
// ROSTER_CONFIG_FILE names an optional YAML file read before the
// environment; any ROSTER_* variable set in the environment wins.
package config
