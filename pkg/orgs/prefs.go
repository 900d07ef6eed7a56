package orgs

import (
	"context"
	"database/sql"
	"fmt"
)

// SetActiveOrganization records the user's active organization, used by the
// surrounding application to restore context across sessions. The user must
// be a member of the organization.
func (s *Service) SetActiveOrganization(ctx context.Context, userID, orgID int64) error {
	var isMember bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE organization_id = $1 AND user_id = $2)`,
		orgID, userID,
	).Scan(&isMember)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_org_prefs (user_id, active_organization_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET active_organization_id = EXCLUDED.active_organization_id, updated_at = NOW()`,
		userID, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active organization: %w", err)
	}
	return nil
}

// GetActiveOrganization returns the user's active organization, or
// ErrNotFound when none is recorded or it has since been deleted.
func (s *Service) GetActiveOrganization(ctx context.Context, userID int64) (*Organization, error) {
	var orgID sql.NullInt64
	err := s.replica.QueryRowContext(ctx,
		`SELECT active_organization_id FROM user_org_prefs WHERE user_id = $1`,
		userID,
	).Scan(&orgID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active organization: %w", err)
	}
	if !orgID.Valid {
		return nil, ErrNotFound
	}
	return s.Get(ctx, orgID.Int64)
}
