package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/observability"
)

// Checker answers permission and admin queries. All reads go through a
// single query; a missing membership collapses to a plain false, never an
// error.
type Checker struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewChecker creates a permission checker. metrics may be nil.
func NewChecker(db *sql.DB, metrics *observability.Metrics) *Checker {
	return &Checker{db: db, metrics: metrics}
}

// HasPermission reports whether the user holds the permission in the
// organization. Admins pass every check unconditionally, including names
// not present in the catalog. Non-members and unknown permission names are
// simply never granted.
func (c *Checker) HasPermission(ctx context.Context, userID, orgID int64, permission catalog.Name) (bool, error) {
	start := time.Now()

	var isAdmin, granted bool
	err := c.db.QueryRowContext(ctx, `
		SELECT m.is_admin,
		       EXISTS(
		           SELECT 1
		           FROM role_permissions rp
		           JOIN permissions p ON p.id = rp.permission_id
		           WHERE rp.role_id = m.role_id AND p.name = $3
		       )
		FROM members m
		WHERE m.organization_id = $2 AND m.user_id = $1`,
		userID, orgID, string(permission),
	).Scan(&isAdmin, &granted)
	if err == sql.ErrNoRows {
		c.observe(permission, false, start)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	allowed := isAdmin || granted
	c.observe(permission, allowed, start)
	return allowed, nil
}

// IsOrgAdmin reports whether the user is an admin member of the organization
func (c *Checker) IsOrgAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	var isAdmin bool
	err := c.db.QueryRowContext(ctx,
		`SELECT is_admin FROM members WHERE organization_id = $2 AND user_id = $1`,
		userID, orgID,
	).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return isAdmin, nil
}

// IsMember reports whether the user belongs to the organization at all
func (c *Checker) IsMember(ctx context.Context, userID, orgID int64) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE organization_id = $2 AND user_id = $1)`,
		userID, orgID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (c *Checker) observe(permission catalog.Name, allowed bool, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObservePermissionCheck(string(permission), allowed, time.Since(start))
	}
}
