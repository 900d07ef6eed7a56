package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/storage/postgres"
)

// joinCodeMaxAttempts bounds collision retries on join code generation
const joinCodeMaxAttempts = 5

// Service manages organizations, members and join requests
type Service struct {
	db       *sql.DB
	replica  *sql.DB
	auditLog audit.Logger
	metrics  *observability.Metrics
	identity IdentityResolver
}

// NewService creates an organization service. replica may equal db when no
// read replicas are configured. identity may be nil, in which case member
// listings omit identity fields.
func NewService(db, replica *sql.DB, auditLog audit.Logger, metrics *observability.Metrics, identity IdentityResolver) *Service {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Service{
		db:       db,
		replica:  replica,
		auditLog: auditLog,
		metrics:  metrics,
		identity: identity,
	}
}

// withRetry runs fn, retrying once on serialization failure or deadlock. A
// second transient failure surfaces as ErrConflict.
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

// record writes an audit event, logging failures without failing the
// business operation.
func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.auditLog.Record(ctx, event); err != nil {
		observability.GetLogger(ctx).WithError(err).
			WithField("event_type", event.EventType).
			Warn("failed to record audit event")
	}
}

// CheckSlugAvailable validates the candidate's format and reports whether no
// existing organization uses it.
func (s *Service) CheckSlugAvailable(ctx context.Context, candidate string) (bool, error) {
	slug := NormalizeSlug(candidate)
	if err := ValidateSlug(slug); err != nil {
		return false, err
	}

	var exists bool
	err := s.replica.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return !exists, nil
}

// CreateOrganization atomically creates the organization and its founding
// admin member, so an organization is never observable without an admin.
// The join code is generated and collision-checked inside the transaction.
func (s *Service) CreateOrganization(ctx context.Context, founderUserID int64, name, slugCandidate, emoji, color string) (*Organization, error) {
	slug := NormalizeSlug(slugCandidate)
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if name == "" {
		name = slug
	}

	var org *Organization
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		created, err := insertOrganization(ctx, tx, slug, name, emoji, color)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (organization_id, user_id, is_admin)
			 VALUES ($1, $2, TRUE)`,
			created.ID, founderUserID,
		)
		if err != nil {
			return fmt.Errorf("failed to create founder member: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		org = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MembersAddedTotal.WithLabelValues("founder").Inc()
	}
	s.record(ctx, audit.Event{
		EventType:      audit.EventOrgCreated,
		OrganizationID: &org.ID,
		ActorID:        &founderUserID,
		Details:        map[string]interface{}{"slug": org.Slug},
	})
	return org, nil
}

// insertOrganization inserts the organization row, retrying join-code
// generation on collision. Slug collisions surface as ErrSlugTaken.
func insertOrganization(ctx context.Context, tx *sql.Tx, slug, name, emoji, color string) (*Organization, error) {
	for attempt := 0; attempt < joinCodeMaxAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, err
		}

		var org Organization
		err = tx.QueryRowContext(ctx, `
			INSERT INTO organizations (slug, name, join_code, emoji, color)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, slug, name, join_code, emoji, color, created_at, updated_at`,
			slug, name, code, emoji, color,
		).Scan(&org.ID, &org.Slug, &org.Name, &org.JoinCode, &org.Emoji, &org.Color, &org.CreatedAt, &org.UpdatedAt)
		if err == nil {
			return &org, nil
		}
		if postgres.IsUniqueViolation(err, "organizations_slug_key") {
			return nil, ErrSlugTaken
		}
		if postgres.IsUniqueViolation(err, "organizations_join_code_key") {
			continue
		}
		return nil, fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil, fmt.Errorf("failed to allocate unique join code after %d attempts", joinCodeMaxAttempts)
}

// Get returns an organization by id
func (s *Service) Get(ctx context.Context, orgID int64) (*Organization, error) {
	return s.scanOrg(s.replica.QueryRowContext(ctx,
		`SELECT id, slug, name, join_code, emoji, color, created_at, updated_at
		 FROM organizations WHERE id = $1`, orgID))
}

// GetBySlug returns an organization by its URL slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.scanOrg(s.replica.QueryRowContext(ctx,
		`SELECT id, slug, name, join_code, emoji, color, created_at, updated_at
		 FROM organizations WHERE slug = $1`, NormalizeSlug(slug)))
}

// GetByJoinCode resolves an organization from a join code
func (s *Service) GetByJoinCode(ctx context.Context, code string) (*Organization, error) {
	org, err := s.scanOrg(s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, join_code, emoji, color, created_at, updated_at
		 FROM organizations WHERE join_code = $1`, NormalizeJoinCode(code)))
	if err == ErrNotFound {
		return nil, ErrInvalidCode
	}
	return org, err
}

func (s *Service) scanOrg(row *sql.Row) (*Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.JoinCode, &org.Emoji, &org.Color, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// ListForUser returns the organizations the user is a member of, ordered by
// name.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Organization, error) {
	rows, err := s.replica.QueryContext(ctx, `
		SELECT o.id, o.slug, o.name, o.join_code, o.emoji, o.color, o.created_at, o.updated_at
		FROM organizations o
		JOIN members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var result []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Slug, &org.Name, &org.JoinCode, &org.Emoji, &org.Color, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

// UpdateSettings updates the organization's display fields
func (s *Service) UpdateSettings(ctx context.Context, orgID, actorID int64, name, emoji, color string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET name = $1, emoji = $2, color = $3, updated_at = NOW()
		WHERE id = $4`,
		name, emoji, color, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.record(ctx, audit.Event{
		EventType:      audit.EventOrgSettingsUpdated,
		OrganizationID: &orgID,
		ActorID:        &actorID,
	})
	return nil
}

// Delete removes the organization and, via cascade, its roles, members and
// join requests.
func (s *Service) Delete(ctx context.Context, orgID, actorID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.record(ctx, audit.Event{
		EventType:      audit.EventOrgDeleted,
		OrganizationID: &orgID,
		ActorID:        &actorID,
	})
	return nil
}
