package orgs

import (
	"errors"
	"time"
)

// Organization is the tenant boundary; every other entity except the
// permission catalog is scoped by organization id.
type Organization struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"join_code,omitempty"`
	Emoji     string    `json:"emoji"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a user's membership in one organization. A member may have no
// role; admins implicitly hold every permission regardless of role.
type Member struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         int64     `json:"user_id"`
	RoleID         *int64    `json:"role_id"`
	IsAdmin        bool      `json:"is_admin"`
	JoinedAt       time.Time `json:"joined_at"`
}

// MemberWithIdentity is a member joined with the minimal identity fields
// resolved from the external identity collaborator.
type MemberWithIdentity struct {
	Member
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	RoleName    string `json:"role_name,omitempty"`
}

// Identity is the minimal user identity resolved externally
type Identity struct {
	UserID      int64
	Email       string
	DisplayName string
}

// IdentityResolver resolves user ids to identities. The lookup is an
// external network call and must never be issued inside an open database
// transaction.
type IdentityResolver interface {
	Resolve(userIDs []int64) (map[int64]Identity, error)
}

// Join-request statuses. pending transitions to approved or rejected
// exactly once; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// JoinRequest is a user's pending request to join an organization
type JoinRequest struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	UserID         int64      `json:"user_id"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	DecidedBy      *int64     `json:"decided_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

// JoinRequestWithIdentity is a join request joined with the requester's
// identity fields for admin review listings.
type JoinRequestWithIdentity struct {
	JoinRequest
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

var (
	// ErrNotFound indicates the organization, member or request does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidSlug indicates the slug candidate fails format validation
	ErrInvalidSlug = errors.New("invalid slug format")

	// ErrSlugTaken indicates another organization already uses the slug
	ErrSlugTaken = errors.New("slug already taken")

	// ErrInvalidCode indicates no organization matches the join code
	ErrInvalidCode = errors.New("invalid join code")

	// ErrAlreadyMember indicates the user is already a member of the organization
	ErrAlreadyMember = errors.New("already a member")

	// ErrDuplicateRequest indicates a pending join request already exists
	// for the user and organization
	ErrDuplicateRequest = errors.New("join request already pending")

	// ErrAlreadyProcessed indicates the join request was approved or
	// rejected by a concurrent caller
	ErrAlreadyProcessed = errors.New("join request already processed")

	// ErrRoleOrgMismatch indicates the role belongs to a different
	// organization than the member
	ErrRoleOrgMismatch = errors.New("role belongs to a different organization")

	// ErrConflict indicates a write lost a race with a concurrent
	// transaction twice in a row; the caller may retry
	ErrConflict = errors.New("concurrent modification conflict")
)
