package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/storage/postgres"
)

// CreateJoinRequest resolves the organization by join code and inserts a
// pending request. Existing members and duplicate pending requests are
// rejected before the insert; the partial unique index on pending requests
// backstops the duplicate check under concurrency.
func (s *Service) CreateJoinRequest(ctx context.Context, userID int64, joinCode string) (*JoinRequest, error) {
	org, err := s.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, err
	}

	var req *JoinRequest
	err = withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		var isMember bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM members WHERE organization_id = $1 AND user_id = $2)`,
			org.ID, userID,
		).Scan(&isMember)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if isMember {
			return ErrAlreadyMember
		}

		var created JoinRequest
		err = tx.QueryRowContext(ctx, `
			INSERT INTO join_requests (organization_id, user_id)
			VALUES ($1, $2)
			RETURNING id, organization_id, user_id, status, created_at`,
			org.ID, userID,
		).Scan(&created.ID, &created.OrganizationID, &created.UserID, &created.Status, &created.CreatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err, "join_requests_pending_idx") {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("failed to insert join request: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		req = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.JoinRequestsTotal.WithLabelValues("created").Inc()
	}
	s.record(ctx, audit.Event{
		EventType:      audit.EventJoinRequestCreated,
		OrganizationID: &org.ID,
		ActorID:        &userID,
	})
	return req, nil
}

// ListJoinRequests returns the organization's join requests with the given
// status, oldest first. Identity enrichment follows the same best-effort
// pattern as ListMembers: the resolver runs after the database read
// completes, and a resolver failure degrades to requests without identity.
func (s *Service) ListJoinRequests(ctx context.Context, orgID int64, status string) ([]JoinRequestWithIdentity, error) {
	rows, err := s.replica.QueryContext(ctx, `
		SELECT id, organization_id, user_id, status, notes, decided_by, created_at, decided_at
		FROM join_requests
		WHERE organization_id = $1 AND status = $2
		ORDER BY created_at`,
		orgID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var result []JoinRequestWithIdentity
	var userIDs []int64
	for rows.Next() {
		var r JoinRequestWithIdentity
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.UserID, &r.Status, &r.Notes, &r.DecidedBy, &r.CreatedAt, &r.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		result = append(result, r)
		userIDs = append(userIDs, r.UserID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.identity != nil && len(userIDs) > 0 {
		identities, err := s.identity.Resolve(userIDs)
		if err != nil {
			observability.GetLogger(ctx).WithError(err).Warn("failed to resolve requester identities")
		} else {
			for i := range result {
				if ident, ok := identities[result[i].UserID]; ok {
					result[i].Email = ident.Email
					result[i].DisplayName = ident.DisplayName
				}
			}
		}
	}
	return result, nil
}

// ApproveJoinRequest atomically flips the request from pending to approved
// and creates the member row. The request must belong to orgID; ids from
// other organizations surface as ErrNotFound. A request already decided by a
// concurrent caller surfaces as ErrAlreadyProcessed and creates no member.
// roleID may be nil; no implicit default-role lookup is performed.
func (s *Service) ApproveJoinRequest(ctx context.Context, orgID, requestID int64, roleID *int64, reviewerID int64) error {
	var userID int64
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		req, err := lockRequest(ctx, tx, orgID, requestID)
		if err != nil {
			return err
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
			if roleOrgID != req.OrganizationID {
				return ErrRoleOrgMismatch
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (organization_id, user_id, role_id)
			 VALUES ($1, $2, $3)`,
			req.OrganizationID, req.UserID, roleID,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, "members_org_user_key") {
				return ErrAlreadyMember
			}
			return fmt.Errorf("failed to create member: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE join_requests
			SET status = $1, decided_by = $2, decided_at = NOW()
			WHERE id = $3`,
			StatusApproved, reviewerID, requestID,
		); err != nil {
			return fmt.Errorf("failed to update join request: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		userID = req.UserID
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.JoinRequestsTotal.WithLabelValues("approved").Inc()
		s.metrics.MembersAddedTotal.WithLabelValues("join_request").Inc()
	}
	s.record(ctx, audit.Event{
		EventType:      audit.EventJoinRequestApproved,
		OrganizationID: &orgID,
		ActorID:        &reviewerID,
		SubjectID:      &userID,
		Details:        roleDetails(roleID),
	})
	return nil
}

// RejectJoinRequest flips the request from pending to rejected with the same
// compare-and-swap and ownership discipline as approval. No member is
// created.
func (s *Service) RejectJoinRequest(ctx context.Context, orgID, requestID int64, notes string, reviewerID int64) error {
	var userID int64
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		req, err := lockRequest(ctx, tx, orgID, requestID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE join_requests
			SET status = $1, notes = $2, decided_by = $3, decided_at = NOW()
			WHERE id = $4`,
			StatusRejected, notes, reviewerID, requestID,
		); err != nil {
			return fmt.Errorf("failed to update join request: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		userID = req.UserID
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.JoinRequestsTotal.WithLabelValues("rejected").Inc()
	}
	s.record(ctx, audit.Event{
		EventType:      audit.EventJoinRequestRejected,
		OrganizationID: &orgID,
		ActorID:        &reviewerID,
		SubjectID:      &userID,
	})
	return nil
}

// lockRequest locks the join request row and verifies it belongs to the
// organization and is still pending. Requests owned by other organizations
// read as ErrNotFound before the status check, so a cross-tenant id never
// reveals whether the request was processed. The row lock plus status check
// is the compare-and-swap that makes the pending-to-terminal transition
// happen exactly once.
func lockRequest(ctx context.Context, tx *sql.Tx, orgID, requestID int64) (*JoinRequest, error) {
	var req JoinRequest
	err := tx.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, status
		FROM join_requests WHERE id = $1 FOR UPDATE`,
		requestID,
	).Scan(&req.ID, &req.OrganizationID, &req.UserID, &req.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock join request: %w", err)
	}
	if req.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	if req.Status != StatusPending {
		return nil, ErrAlreadyProcessed
	}
	return &req, nil
}
