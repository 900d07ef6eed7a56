// Package catalog defines the global permission catalog: the closed set of
// capability names that roles may grant and callers may check.
//
// # Overview
//
// Permissions are a fixed enumeration of catalog.Name constants grouped into
// categories (tasks, events, members, tags, resources, skills, org). The
// catalog is seeded into the permissions table at startup and is immutable
// at runtime; there are no free-form permission strings.
//
// # Usage Example
//
//	for _, e := range catalog.All() {
//		fmt.Printf("%s (%s): %s\n", e.Name, e.Category, e.Description)
//	}
//
//	if !catalog.Valid(name) {
//		// unknown names are never granted, not errors
//	}
//
// # Seeding and Verification
//
// rosterd seeds and verifies the catalog before serving:
//
//	store := catalog.NewStore(db)
//	if err := store.Seed(ctx); err != nil { ... }
//	if err := store.Verify(ctx); err != nil { ... }
//
// Seed upserts every entry (idempotent); Verify fails startup when a
// constant is missing from the database. LookupID resolves name to row id
// through a TTL cache, safe because the catalog never changes while the
// process runs.
//
// # Related Packages
//
//   - pkg/roles: Grants permission ids to roles
//   - pkg/authz: Checks permission names against grants
package catalog
