// Package middleware provides the HTTP middleware shared across the API:
// actor resolution, request ids, and rate limiting.
//
// # Middleware Components
//
// ActorMiddleware: resolves the acting user from identity headers set by the
// authenticating proxy in front of rosterd (the service itself never
// authenticates):
//
//	api.Use(middleware.ActorMiddleware)
//	// X-Roster-User-Id (required), X-Roster-User-Email (optional)
//	actor := middleware.ActorFromContext(r.Context())
//
// RequestIDMiddleware: assigns a UUID per request, honoring an inbound
// X-Request-Id, and echoes it on the response.
//
// RateLimiter: Redis-backed fixed-window limiter used on join-request
// submission, keyed by client address:
//
//	limiter := middleware.NewRateLimiter(redisClient, 10, time.Minute, "roster:join", metrics)
//	handler = limiter.Middleware(handler)
//
// The limiter fails open: when Redis is unreachable the request proceeds,
// since join codes still require a valid match to do anything.
//
// # Related Packages
//
//   - pkg/authz: Permission middleware layered on the actor context
//   - pkg/orgs: Organization context middleware (slug resolution)
package middleware
