// Package orgs manages organizations, their members, and the join-request
// workflow through which users become members.
//
// # Overview
//
// This package owns the tenant model: organization records with unique slugs
// and join codes, membership rows tying users to organizations (optionally
// through a role), the pending/approved/rejected join-request lifecycle, and
// the per-user active-organization preference.
//
// # Organization Creation
//
// Creating an organization validates the slug, generates a unique join code,
// and inserts the founding admin member in the same transaction:
//
//	org, err := service.CreateOrganization(ctx, founderID, "Acme Corp", "acme", "🏢", "#3366ff")
//	if errors.Is(err, orgs.ErrSlugTaken) {
//		// name the slug differently
//	}
//
// Slug availability can be checked up front:
//
//	available, err := service.CheckSlugAvailable(ctx, "acme")
//
// Slugs are lowercase alphanumeric segments joined by single hyphens,
// 3 to 50 characters. Join codes are 8 characters from an alphabet with
// ambiguous glyphs (0/O, 1/I/L) removed.
//
// # Join Requests
//
// Users request membership with a join code; admins approve or reject:
//
//	req, err := service.CreateJoinRequest(ctx, userID, "ABCD2345")
//	// ErrInvalidCode, ErrAlreadyMember, ErrDuplicateRequest
//
//	err = service.ApproveJoinRequest(ctx, org.ID, req.ID, &roleID, reviewerID)
//	// ErrAlreadyProcessed when another reviewer decided first;
//	// ErrNotFound when the request belongs to a different organization
//
// Approval and rejection lock the request row (SELECT ... FOR UPDATE) and
// compare-and-swap on the pending status, so concurrent decisions have
// exactly one winner. A partial unique index on pending (org, user) pairs
// backs the duplicate-request check against races.
//
// # Members
//
// Member listings resolve display identity through the IdentityResolver
// collaborator, outside any open transaction; resolution failures degrade to
// members without identity rather than failing the listing.
//
//	members, err := service.ListMembers(ctx, orgID)
//	err = service.AssignRole(ctx, memberID, &roleID, actorID) // ErrRoleOrgMismatch
//	err = service.RemoveMember(ctx, memberID, actorID)
//
// # Concurrency
//
// Every multi-statement write runs in a single transaction. Serialization
// and deadlock failures are retried once; a second failure surfaces as
// ErrConflict.
//
// # Related Packages
//
//   - pkg/roles: Role definitions referenced by members and approvals
//   - pkg/authz: Permission evaluation over membership rows
//   - pkg/audit: Lifecycle events recorded by this package
package orgs
