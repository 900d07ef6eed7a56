// Package postgres manages PostgreSQL connections and schema migrations for
// the Roster membership service.
//
// # Connection Management
//
// ConnectionManager holds a primary pool and optional read replicas with
// round-robin selection; Replica() falls back to the primary when no replica
// is healthy.
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
//		PrimaryURL:  cfg.DatabaseURL,
//		ReplicaURLs: postgres.ParseReplicaURLs(cfg.DatabaseReplicaURLs),
//		MaxConns:    cfg.DatabaseMaxConns,
//	})
//
// # Migrations
//
// Versioned SQL migrations applied in order inside transactions, tracked in
// schema_migrations:
//
//	if err := postgres.RunMigrations(ctx, cm.Primary()); err != nil { ... }
//
// # Error Classification
//
// Helpers classify lib/pq errors for the domain packages:
//
//	postgres.IsUniqueViolation(err, "roles_org_name_key")
//	postgres.IsForeignKeyViolation(err)
//	postgres.IsRetryable(err) // serialization failure or deadlock
package postgres
