package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/observability"
)

// ListMembers returns the organization's members joined with identity fields
// from the external resolver. The identity lookup runs after the database
// read completes, never inside a transaction.
func (s *Service) ListMembers(ctx context.Context, orgID int64) ([]MemberWithIdentity, error) {
	rows, err := s.replica.QueryContext(ctx, `
		SELECT m.id, m.organization_id, m.user_id, m.role_id, m.is_admin, m.joined_at,
		       COALESCE(r.name, '')
		FROM members m
		LEFT JOIN roles r ON r.id = m.role_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []MemberWithIdentity
	var userIDs []int64
	for rows.Next() {
		var m MemberWithIdentity
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.IsAdmin, &m.JoinedAt, &m.RoleName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
		userIDs = append(userIDs, m.UserID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.identity != nil && len(userIDs) > 0 {
		identities, err := s.identity.Resolve(userIDs)
		if err != nil {
			// Identity enrichment is best effort; membership data is
			// still useful without it
			observability.GetLogger(ctx).WithError(err).Warn("failed to resolve member identities")
		} else {
			for i := range members {
				if ident, ok := identities[members[i].UserID]; ok {
					members[i].Email = ident.Email
					members[i].DisplayName = ident.DisplayName
				}
			}
		}
	}

	return members, nil
}

// GetMember returns a member by id
func (s *Service) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	var m Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, role_id, is_admin, joined_at
		FROM members WHERE id = $1`,
		memberID,
	).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.IsAdmin, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// AssignRole overwrites the member's role. A nil roleID clears the role.
// Roles belonging to a different organization are rejected.
func (s *Service) AssignRole(ctx context.Context, memberID int64, roleID *int64, actorID int64) error {
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		var orgID int64
		err = tx.QueryRowContext(ctx,
			`SELECT organization_id FROM members WHERE id = $1 FOR UPDATE`,
			memberID,
		).Scan(&orgID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}

		if roleID != nil {
			var roleOrgID int64
			err = tx.QueryRowContext(ctx,
				`SELECT organization_id FROM roles WHERE id = $1`, *roleID,
			).Scan(&roleOrgID)
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get role: %w", err)
			}
			if roleOrgID != orgID {
				return ErrRoleOrgMismatch
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE members SET role_id = $1 WHERE id = $2`,
			roleID, memberID,
		); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Event{
		EventType: audit.EventMemberRoleChanged,
		ActorID:   &actorID,
		SubjectID: &memberID,
		Details:   roleDetails(roleID),
	})
	return nil
}

func roleDetails(roleID *int64) map[string]interface{} {
	if roleID == nil {
		return map[string]interface{}{"role_id": nil}
	}
	return map[string]interface{}{"role_id": *roleID}
}

// RemoveMember deletes the member row. Admin members can be removed like any
// other; demote-before-remove is left to the caller.
func (s *Service) RemoveMember(ctx context.Context, memberID, actorID int64) error {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if s.metrics != nil {
		s.metrics.MembersRemovedTotal.Inc()
	}
	s.record(ctx, audit.Event{
		EventType:      audit.EventMemberRemoved,
		OrganizationID: &member.OrganizationID,
		ActorID:        &actorID,
		SubjectID:      &member.UserID,
		Details:        map[string]interface{}{"was_admin": member.IsAdmin},
	})
	return nil
}
