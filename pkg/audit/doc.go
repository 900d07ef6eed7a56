// Package audit records membership and organization lifecycle events in a
// queryable trail.
//
// # Event Types
//
// Organization: org.created, org.settings_updated, org.deleted
// Membership: member.added, member.removed, member.role_changed
// Join requests: join_request.created, join_request.approved, join_request.rejected
// Roles: role.created, role.updated, role.deleted
//
// # Usage Example
//
// Record an event:
//
//	logger.Record(ctx, audit.Event{
//		EventType:      audit.EventMemberRemoved,
//		OrganizationID: &orgID,
//		ActorID:        &actorID,
//		SubjectID:      &member.UserID,
//		Details:        map[string]interface{}{"was_admin": member.IsAdmin},
//	})
//
// Callers treat Record failures as non-fatal: the domain operation has
// already committed, so a failed write is logged and dropped rather than
// rolled back.
//
// Search the trail (served to org admins at GET /api/orgs/{slug}/audit-events):
//
//	events, err := dbLogger.Search(ctx, audit.Filter{
//		OrganizationID: orgID,
//		EventTypes:     []string{audit.EventJoinRequestApproved},
//		Since:          time.Now().Add(-24 * time.Hour),
//	})
//
// # Retention
//
// Purger deletes events older than the configured retention (default 90
// days); rosterd runs it on a cron schedule.
//
// # Related Packages
//
//   - pkg/orgs: Emits membership and organization events
//   - pkg/roles: Role write events recorded at the HTTP layer
package audit
