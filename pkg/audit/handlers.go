package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/observability"
)

// OrgResolver extracts the organization id scoping an audit query from the
// request. The server wires this to its organization context middleware;
// keeping it a function avoids a dependency on the orgs package, which
// records events through this one.
type OrgResolver func(r *http.Request) (int64, bool)

// Handler serves the audit trail query API
type Handler struct {
	logger *DBLogger
	orgID  OrgResolver
}

// NewHandler creates an audit HTTP handler
func NewHandler(logger *DBLogger, orgID OrgResolver) *Handler {
	return &Handler{logger: logger, orgID: orgID}
}

// List handles GET /api/orgs/{slug}/audit-events. Filters: types (comma
// separated), since/until (RFC 3339), limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(r)
	if !ok {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	filter := Filter{OrganizationID: orgID}

	if types := httputil.ParseQueryString(r, "types", ""); types != "" {
		filter.EventTypes = strings.Split(types, ",")
	}
	if since := httputil.ParseQueryString(r, "since", ""); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteValidationError(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}
	if until := httputil.ParseQueryString(r, "until", ""); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			httputil.WriteValidationError(w, "until must be an RFC 3339 timestamp")
			return
		}
		filter.Until = t
	}
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		httputil.WriteValidationError(w, "limit must be a non-negative integer")
		return
	}
	filter.Limit = limit

	events, err := h.logger.Search(r.Context(), filter)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to search audit trail")
		httputil.WriteInternalError(w, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"events": events})
}
