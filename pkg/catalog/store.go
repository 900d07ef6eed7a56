package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Permission is a catalog entry as stored in the database
type Permission struct {
	ID          int64  `json:"id"`
	Name        Name   `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Store provides read access to the seeded permission catalog. Because the
// catalog only changes via Seed at startup, name-to-id lookups are cached.
type Store struct {
	db  *sql.DB
	ids *expirable.LRU[Name, int64]
}

// NewStore creates a catalog store backed by db
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		ids: expirable.NewLRU[Name, int64](256, nil, time.Hour),
	}
}

// Seed inserts every catalog entry, updating description and category for
// entries that already exist. IDs of existing entries are never changed.
func (s *Store) Seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO permissions (name, description, category)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description, category = EXCLUDED.category`,
			string(e.Name), e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("failed to seed permission %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

// Verify checks that every declared permission name exists in the database.
// It is called at startup so a catalog drift fails fast rather than silently
// denying checks.
func (s *Store) Verify(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM permissions`)
	if err != nil {
		return fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	stored := make(map[Name]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan permission name: %w", err)
		}
		stored[Name(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read permissions: %w", err)
	}

	for _, e := range entries {
		if _, ok := stored[e.Name]; !ok {
			return fmt.Errorf("permission %q missing from database", e.Name)
		}
	}
	return nil
}

// List returns all stored permissions ordered by category then name
func (s *Store) List(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, category
		FROM permissions
		ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// LookupID resolves a permission name to its database id, using a cache since
// the catalog is immutable at runtime.
func (s *Store) LookupID(ctx context.Context, name Name) (int64, error) {
	if id, ok := s.ids.Get(name); ok {
		return id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM permissions WHERE name = $1`, string(name),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("unknown permission %q", name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up permission %q: %w", name, err)
	}

	s.ids.Add(name, id)
	return id, nil
}
