// Package authz evaluates permission checks against a member's admin flag
// and role grants.
//
// # Overview
//
// The Checker answers "may user U do P in org O" with a single
// read-consistent query over the membership row: admins pass
// unconditionally, everyone else passes only when their role grants the
// named permission. Non-members, members without a role, and unknown
// permission names all evaluate to false rather than erroring.
//
// # Usage Example
//
//	ok, err := checker.HasPermission(ctx, userID, orgID, catalog.TasksCreate)
//	if err != nil {
//		return err
//	}
//	if !ok {
//		// deny
//	}
//
// Admin and membership shortcuts:
//
//	isAdmin, err := checker.IsOrgAdmin(ctx, userID, orgID)
//	isMember, err := checker.IsMember(ctx, userID, orgID)
//
// # HTTP Middleware
//
// RequirePermission, RequireAdmin, and RequireMember wrap handlers with the
// corresponding check, reading the actor and organization from the request
// context:
//
//	org.Handle("/members/{memberID}",
//		checker.RequirePermission(catalog.MembersRemove)(handler)).Methods("DELETE")
//
// # Caching
//
// Decisions are never cached across requests; role edits take effect on the
// next check.
//
// # Related Packages
//
//   - pkg/catalog: Permission names accepted by the checker
//   - pkg/orgs: Membership rows the checker evaluates
//   - pkg/middleware: Actor resolution upstream of the checks
package authz
