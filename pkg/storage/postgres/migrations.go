package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of schema migrations. Append only;
// never edit a released migration.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create organizations table",
		SQL: `
			CREATE TABLE IF NOT EXISTS organizations (
				id BIGSERIAL PRIMARY KEY,
				slug VARCHAR(50) NOT NULL,
				name VARCHAR(255) NOT NULL,
				join_code VARCHAR(16) NOT NULL,
				emoji VARCHAR(16) NOT NULL DEFAULT '',
				color VARCHAR(16) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT organizations_slug_key UNIQUE (slug),
				CONSTRAINT organizations_join_code_key UNIQUE (join_code)
			);
		`,
	},
	{
		Version:     2,
		Description: "Create permissions catalog table",
		SQL: `
			CREATE TABLE IF NOT EXISTS permissions (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(50) NOT NULL DEFAULT '',
				CONSTRAINT permissions_name_key UNIQUE (name)
			);
		`,
	},
	{
		Version:     3,
		Description: "Create roles and role_permissions tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS roles (
				id BIGSERIAL PRIMARY KEY,
				organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				name VARCHAR(100) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT roles_org_name_key UNIQUE (organization_id, name)
			);

			CREATE UNIQUE INDEX IF NOT EXISTS roles_org_default_idx
				ON roles(organization_id) WHERE is_default;

			CREATE TABLE IF NOT EXISTS role_permissions (
				role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
				permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
				PRIMARY KEY (role_id, permission_id)
			);
		`,
	},
	{
		Version:     4,
		Description: "Create members table",
		SQL: `
			CREATE TABLE IF NOT EXISTS members (
				id BIGSERIAL PRIMARY KEY,
				organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				user_id BIGINT NOT NULL,
				role_id BIGINT REFERENCES roles(id) ON DELETE RESTRICT,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT members_org_user_key UNIQUE (organization_id, user_id)
			);

			CREATE INDEX IF NOT EXISTS members_user_idx ON members(user_id);
		`,
	},
	{
		Version:     5,
		Description: "Create join_requests table",
		SQL: `
			CREATE TABLE IF NOT EXISTS join_requests (
				id BIGSERIAL PRIMARY KEY,
				organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				user_id BIGINT NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				notes TEXT NOT NULL DEFAULT '',
				decided_by BIGINT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				decided_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX IF NOT EXISTS join_requests_pending_idx
				ON join_requests(organization_id, user_id) WHERE status = 'pending';

			CREATE INDEX IF NOT EXISTS join_requests_org_status_idx
				ON join_requests(organization_id, status);
		`,
	},
	{
		Version:     6,
		Description: "Create user_org_prefs table",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_org_prefs (
				user_id BIGINT PRIMARY KEY,
				active_organization_id BIGINT REFERENCES organizations(id) ON DELETE SET NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version:     7,
		Description: "Create audit_logs table",
		SQL: `
			CREATE TABLE IF NOT EXISTS audit_logs (
				id BIGSERIAL PRIMARY KEY,
				event_type VARCHAR(100) NOT NULL,
				organization_id BIGINT,
				actor_id BIGINT,
				subject_id BIGINT,
				details JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS audit_logs_org_idx
				ON audit_logs(organization_id, created_at);
			CREATE INDEX IF NOT EXISTS audit_logs_event_type_idx
				ON audit_logs(event_type);
		`,
	},
}

// RunMigrations applies all pending migrations against db. It creates the
// tracking table on first run and is safe to call on every startup.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}
	}

	return nil
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		m.Version, m.Description,
	); err != nil {
		return err
	}

	return tx.Commit()
}
