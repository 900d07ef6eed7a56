package orgs

import (
	"context"
	"errors"
	"net/http"

	"github.com/kestrelhq/roster/pkg/contextkeys"
	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/observability"
)

// OrgFromContext returns the organization resolved by ContextMiddleware, or
// nil when the request is not org-scoped.
func OrgFromContext(ctx context.Context) *Organization {
	if org, ok := ctx.Value(contextkeys.OrgKey).(*Organization); ok {
		return org
	}
	return nil
}

// ContextMiddleware resolves the {slug} path variable into the organization
// and stores it in the request context. Unknown slugs short-circuit with a
// 404 before any handler runs.
func (s *Service) ContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug, err := httputil.ParsePathString(r, "slug")
		if err != nil {
			httputil.WriteValidationError(w, "missing organization slug")
			return
		}

		org, err := s.GetBySlug(r.Context(), slug)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				httputil.WriteNotFoundError(w, "organization not found")
				return
			}
			observability.GetLogger(r.Context()).WithError(err).Error("failed to resolve organization")
			httputil.WriteInternalError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithOrg(r.Context(), org)))
	})
}
