// Package roles manages per-organization roles: named bundles of catalog
// permissions, with at most one default role per organization.
//
// # Overview
//
// Roles are organization-scoped. Each role has a unique name within its
// organization, an optional description, a set of permission grants, and an
// is_default flag. Members reference roles; the authorization evaluator in
// pkg/authz reads the role_permissions rows this package writes.
//
// # Usage Example
//
// Create a role granting two permissions:
//
//	id, err := store.CreateRole(ctx, orgID, "organizer", "Runs events",
//		[]int64{tasksCreateID, eventsCreateID}, false)
//	if errors.Is(err, roles.ErrDuplicateName) {
//		// name already used in this organization
//	}
//
// Updates replace the full permission set:
//
//	err = store.UpdateRole(ctx, id, "organizer", "Runs events and tasks",
//		[]int64{tasksCreateID}, true)
//
// Deletion is guarded, never cascaded:
//
//	err = store.DeleteRole(ctx, id)
//	if errors.Is(err, roles.ErrRoleInUse) {
//		// reassign members first
//	}
//
// # Default Exclusivity
//
// Marking a role default clears is_default on the organization's other roles
// in the same transaction. A partial unique index on
// roles(organization_id) WHERE is_default enforces the invariant at the
// schema level as well.
//
// # Related Packages
//
//   - pkg/catalog: Permission ids granted by roles
//   - pkg/orgs: Members holding roles; approval-time role assignment
//   - pkg/authz: Reads grants written here
package roles
