package roles

import (
	"errors"
	"time"

	"github.com/kestrelhq/roster/pkg/catalog"
)

// Role is a named, per-organization permission bundle
type Role struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RoleWithPermissions is a role plus its granted catalog permissions
type RoleWithPermissions struct {
	Role
	Permissions []catalog.Permission `json:"permissions"`
}

var (
	// ErrNotFound indicates the role does not exist
	ErrNotFound = errors.New("role not found")

	// ErrDuplicateName indicates another role in the organization already
	// has the requested name
	ErrDuplicateName = errors.New("role name already in use")

	// ErrRoleInUse indicates the role is still assigned to members and
	// cannot be deleted
	ErrRoleInUse = errors.New("role is assigned to members")

	// ErrConflict indicates a write lost a race with a concurrent
	// transaction twice in a row; the caller may retry
	ErrConflict = errors.New("concurrent modification conflict")
)
