package catalog

import (
	"net/http"

	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/observability"
)

// Handler serves the read-only permission catalog API
type Handler struct {
	store *Store
}

// NewHandler creates a catalog HTTP handler
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// List handles GET /api/permissions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.List(r.Context())
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to list permissions")
		httputil.WriteInternalError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"permissions": perms})
}
