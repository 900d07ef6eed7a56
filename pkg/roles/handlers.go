package roles

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/middleware"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/orgs"
)

// Handler serves the role management HTTP API
type Handler struct {
	store    *Store
	catalog  *catalog.Store
	auditLog audit.Logger
	metrics  *observability.Metrics
}

// NewHandler creates a role HTTP handler
func NewHandler(store *Store, catalogStore *catalog.Store, auditLog audit.Logger, metrics *observability.Metrics) *Handler {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Handler{store: store, catalog: catalogStore, auditLog: auditLog, metrics: metrics}
}

// record writes an audit event for a role write. The write has already
// committed, so failures are logged and dropped.
func (h *Handler) record(r *http.Request, eventType string, orgID, roleID int64) {
	event := audit.Event{
		EventType:      eventType,
		OrganizationID: &orgID,
		Details:        map[string]interface{}{"role_id": roleID},
	}
	if actor := middleware.ActorFromContext(r.Context()); actor != nil {
		event.ActorID = &actor.UserID
	}
	if err := h.auditLog.Record(r.Context(), event); err != nil {
		observability.GetLogger(r.Context()).WithError(err).Warn("failed to record audit event")
	}
}

type roleRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions []catalog.Name `json:"permissions"`
	IsDefault   bool           `json:"is_default"`
}

func (req *roleRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if len(req.Name) > 100 {
		return "name must be at most 100 characters"
	}
	for _, name := range req.Permissions {
		if !catalog.Valid(name) {
			return fmt.Sprintf("unknown permission %q", name)
		}
	}
	return ""
}

// resolvePermissions maps the submitted catalog names to permission row ids.
// Names have already been validated against the closed catalog, so a lookup
// failure here is a server-side problem, not caller input.
func (h *Handler) resolvePermissions(r *http.Request, names []catalog.Name) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := h.catalog.LookupID(r.Context(), name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// List handles GET /api/orgs/{slug}/roles
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	org := orgs.OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	result, err := h.store.ListRoles(r.Context(), org.ID)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to list roles")
		httputil.WriteInternalError(w, err)
		return
	}
	if result == nil {
		result = []Role{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"roles": result})
}

// Get handles GET /api/orgs/{slug}/roles/{roleID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org := orgs.OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	roleID, ok := httputil.ParsePathInt64OrError(w, r, "roleID")
	if !ok {
		return
	}

	role, err := h.store.GetRoleWithPermissions(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "role not found")
			return
		}
		observability.GetLogger(r.Context()).WithError(err).Error("failed to get role")
		httputil.WriteInternalError(w, err)
		return
	}
	if role.OrganizationID != org.ID {
		httputil.WriteNotFoundError(w, "role not found")
		return
	}
	httputil.WriteSuccess(w, role)
}

// Create handles POST /api/orgs/{slug}/roles
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	org := orgs.OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteValidationError(w, msg)
		return
	}

	permissionIDs, err := h.resolvePermissions(r, req.Permissions)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to resolve permissions")
		httputil.WriteInternalError(w, err)
		return
	}

	roleID, err := h.store.CreateRole(r.Context(), org.ID, req.Name, req.Description, permissionIDs, req.IsDefault)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to create role")
		return
	}

	if h.metrics != nil {
		h.metrics.RoleWritesTotal.WithLabelValues("create").Inc()
	}
	h.record(r, audit.EventRoleCreated, org.ID, roleID)
	httputil.WriteCreated(w, map[string]interface{}{"id": roleID})
}

// Update handles PUT /api/orgs/{slug}/roles/{roleID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	org := orgs.OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	roleID, ok := httputil.ParsePathInt64OrError(w, r, "roleID")
	if !ok {
		return
	}

	if !h.roleBelongsToOrg(w, r, roleID, org.ID) {
		return
	}

	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteValidationError(w, msg)
		return
	}

	permissionIDs, err := h.resolvePermissions(r, req.Permissions)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to resolve permissions")
		httputil.WriteInternalError(w, err)
		return
	}

	if err := h.store.UpdateRole(r.Context(), roleID, req.Name, req.Description, permissionIDs, req.IsDefault); err != nil {
		h.writeStoreError(w, r, err, "failed to update role")
		return
	}

	if h.metrics != nil {
		h.metrics.RoleWritesTotal.WithLabelValues("update").Inc()
	}
	h.record(r, audit.EventRoleUpdated, org.ID, roleID)
	httputil.WriteNoContent(w)
}

// Delete handles DELETE /api/orgs/{slug}/roles/{roleID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	org := orgs.OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	roleID, ok := httputil.ParsePathInt64OrError(w, r, "roleID")
	if !ok {
		return
	}

	if !h.roleBelongsToOrg(w, r, roleID, org.ID) {
		return
	}

	if err := h.store.DeleteRole(r.Context(), roleID); err != nil {
		h.writeStoreError(w, r, err, "failed to delete role")
		return
	}

	if h.metrics != nil {
		h.metrics.RoleWritesTotal.WithLabelValues("delete").Inc()
	}
	h.record(r, audit.EventRoleDeleted, org.ID, roleID)
	httputil.WriteNoContent(w)
}

// roleBelongsToOrg verifies the role is owned by the organization in the
// request context. Cross-organization role ids surface as not found.
func (h *Handler) roleBelongsToOrg(w http.ResponseWriter, r *http.Request, roleID, orgID int64) bool {
	role, err := h.store.GetRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "role not found")
			return false
		}
		observability.GetLogger(r.Context()).WithError(err).Error("failed to get role")
		httputil.WriteInternalError(w, err)
		return false
	}
	if role.OrganizationID != orgID {
		httputil.WriteNotFoundError(w, "role not found")
		return false
	}
	return true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, "role not found")
	case errors.Is(err, ErrDuplicateName):
		httputil.WriteConflict(w, "a role with this name already exists")
	case errors.Is(err, ErrRoleInUse):
		httputil.WriteConflict(w, "role is still assigned to members")
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, "concurrent modification, please retry")
	default:
		observability.GetLogger(r.Context()).WithError(err).Error(logMsg)
		httputil.WriteInternalError(w, err)
	}
}
