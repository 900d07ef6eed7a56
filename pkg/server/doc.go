// Package server assembles the HTTP API from the domain handlers and
// middleware.
//
// # Route Layout
//
//	POST   /api/orgs                      create organization
//	GET    /api/orgs                      list caller's organizations
//	GET    /api/orgs/slug-check?slug=     slug availability
//	GET    /api/permissions               permission catalog
//	POST   /api/join-requests             submit join request (rate limited)
//	GET    /api/me/active-org             active-organization preference
//	PUT    /api/me/active-org
//
// Org-scoped routes live under /api/orgs/{slug} behind the organization
// context middleware; each is guarded by the weakest sufficient check
// (membership, a specific permission, or admin). Admins can additionally
// query the audit trail at GET /api/orgs/{slug}/audit-events.
//
// # Usage Example
//
//	router := server.NewRouter(server.Deps{
//		Orgs:        orgService,
//		OrgHandler:  orgHandler,
//		RoleHandler: roleHandler,
//		CatHandler:  catalogHandler,
//		Checker:     checker,
//		Metrics:     metrics,
//		Logger:      logger,
//		JoinLimiter: limiter, // optional
//	})
//	http.ListenAndServe(cfg.Addr(), router)
package server
