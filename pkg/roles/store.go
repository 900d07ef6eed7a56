package roles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/storage/postgres"
)

// Store provides role persistence backed by PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a role store backed by db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// withRetry runs fn, retrying once if the transaction failed with a
// serialization failure or deadlock. A second transient failure surfaces as
// ErrConflict.
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !postgres.IsRetryable(err) {
		return err
	}
	if err = fn(); err != nil && postgres.IsRetryable(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// CreateRole inserts a role and its permission grants. When isDefault is
// true, the previous default role of the organization is cleared in the same
// transaction so readers never observe two defaults.
func (s *Store) CreateRole(ctx context.Context, orgID int64, name, description string, permissionIDs []int64, isDefault bool) (int64, error) {
	var roleID int64
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if isDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE roles SET is_default = FALSE, updated_at = NOW()
				 WHERE organization_id = $1 AND is_default`,
				orgID,
			); err != nil {
				return fmt.Errorf("failed to clear previous default role: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO roles (organization_id, name, description, is_default)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			orgID, name, description, isDefault,
		).Scan(&roleID)
		if err != nil {
			if postgres.IsUniqueViolation(err, "roles_org_name_key") {
				return ErrDuplicateName
			}
			return fmt.Errorf("failed to insert role: %w", err)
		}

		if err := insertPermissions(ctx, tx, roleID, permissionIDs); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return roleID, nil
}

// UpdateRole replaces a role's fields and its full permission set. The
// permission set is replaced wholesale rather than diffed; role edits are
// infrequent and permission counts are small.
func (s *Store) UpdateRole(ctx context.Context, roleID int64, name, description string, permissionIDs []int64, isDefault bool) error {
	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		var orgID int64
		err = tx.QueryRowContext(ctx,
			`SELECT organization_id FROM roles WHERE id = $1 FOR UPDATE`,
			roleID,
		).Scan(&orgID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock role: %w", err)
		}

		if isDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE roles SET is_default = FALSE, updated_at = NOW()
				 WHERE organization_id = $1 AND is_default AND id != $2`,
				orgID, roleID,
			); err != nil {
				return fmt.Errorf("failed to clear previous default role: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE roles
			 SET name = $1, description = $2, is_default = $3, updated_at = NOW()
			 WHERE id = $4`,
			name, description, isDefault, roleID,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, "roles_org_name_key") {
				return ErrDuplicateName
			}
			return fmt.Errorf("failed to update role: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1`, roleID,
		); err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		if err := insertPermissions(ctx, tx, roleID, permissionIDs); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// DeleteRole removes a role. Roles still assigned to members cannot be
// deleted; callers must reassign those members first.
func (s *Store) DeleteRole(ctx context.Context, roleID int64) error {
	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		var assigned int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM members WHERE role_id = $1`, roleID,
		).Scan(&assigned)
		if err != nil {
			return fmt.Errorf("failed to count role assignments: %w", err)
		}
		if assigned > 0 {
			return ErrRoleInUse
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
		if err != nil {
			// The members.role_id FK backstops the count in case of a race
			if postgres.IsForeignKeyViolation(err) {
				return ErrRoleInUse
			}
			return fmt.Errorf("failed to delete role: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read delete result: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}

		return tx.Commit()
	})
}

// ListRoles returns all roles of an organization ordered by name
func (s *Store) ListRoles(ctx context.Context, orgID int64) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, name, description, is_default, created_at, updated_at
		 FROM roles
		 WHERE organization_id = $1
		 ORDER BY name`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRole returns a single role by id
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	var r Role
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, description, is_default, created_at, updated_at
		 FROM roles WHERE id = $1`,
		roleID,
	).Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}

// GetRoleWithPermissions returns a role and its granted permissions, used to
// pre-populate edit forms.
func (s *Store) GetRoleWithPermissions(ctx context.Context, roleID int64) (*RoleWithPermissions, error) {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.category
		 FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.category, p.name`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	result := &RoleWithPermissions{Role: *role, Permissions: []catalog.Permission{}}
	for rows.Next() {
		var p catalog.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		result.Permissions = append(result.Permissions, p)
	}
	return result, rows.Err()
}

func insertPermissions(ctx context.Context, tx *sql.Tx, roleID int64, permissionIDs []int64) error {
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, permID,
		); err != nil {
			return fmt.Errorf("failed to grant permission %d: %w", permID, err)
		}
	}
	return nil
}
