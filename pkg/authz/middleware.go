package authz

import (
	"net/http"

	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/middleware"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/orgs"
)

// RequirePermission guards a handler behind a permission check against the
// organization in the request context. It must run after the actor and
// organization middleware.
func (c *Checker) RequirePermission(permission catalog.Name) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := middleware.ActorFromContext(r.Context())
			if actor == nil {
				httputil.WriteUnauthorized(w, "not authenticated")
				return
			}
			org := orgs.OrgFromContext(r.Context())
			if org == nil {
				httputil.WriteNotFoundError(w, "organization not found")
				return
			}

			allowed, err := c.HasPermission(r.Context(), actor.UserID, org.ID, permission)
			if err != nil {
				observability.GetLogger(r.Context()).WithError(err).Error("permission check failed")
				httputil.WriteInternalError(w, err)
				return
			}
			if !allowed {
				httputil.WriteForbidden(w, "permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards a handler behind the organization admin flag
func (c *Checker) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if actor == nil {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}
		org := orgs.OrgFromContext(r.Context())
		if org == nil {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}

		isAdmin, err := c.IsOrgAdmin(r.Context(), actor.UserID, org.ID)
		if err != nil {
			observability.GetLogger(r.Context()).WithError(err).Error("admin check failed")
			httputil.WriteInternalError(w, err)
			return
		}
		if !isAdmin {
			httputil.WriteForbidden(w, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireMember guards a handler behind plain membership
func (c *Checker) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if actor == nil {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}
		org := orgs.OrgFromContext(r.Context())
		if org == nil {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}

		isMember, err := c.IsMember(r.Context(), actor.UserID, org.ID)
		if err != nil {
			observability.GetLogger(r.Context()).WithError(err).Error("membership check failed")
			httputil.WriteInternalError(w, err)
			return
		}
		if !isMember {
			httputil.WriteForbidden(w, "membership required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
