package audit

import "time"

// Event types recorded in the audit trail
const (
	EventOrgCreated         = "org.created"
	EventOrgDeleted         = "org.deleted"
	EventOrgSettingsUpdated = "org.settings_updated"

	EventMemberAdded       = "member.added"
	EventMemberRemoved     = "member.removed"
	EventMemberRoleChanged = "member.role_changed"

	EventJoinRequestCreated  = "join_request.created"
	EventJoinRequestApproved = "join_request.approved"
	EventJoinRequestRejected = "join_request.rejected"

	EventRoleCreated = "role.created"
	EventRoleUpdated = "role.updated"
	EventRoleDeleted = "role.deleted"
)

// Event is a single audit trail entry. ActorID is the user who performed
// the action; SubjectID is the user acted upon, when there is one.
type Event struct {
	ID             int64                  `json:"id,omitempty"`
	EventType      string                 `json:"event_type"`
	OrganizationID *int64                 `json:"organization_id,omitempty"`
	ActorID        *int64                 `json:"actor_id,omitempty"`
	SubjectID      *int64                 `json:"subject_id,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
	CreatedAt      time.Time              `json:"created_at,omitempty"`
}

// Filter narrows an audit trail search. Zero values mean "any".
type Filter struct {
	OrganizationID int64
	EventTypes     []string
	Since          time.Time
	Until          time.Time
	Limit          int
}
