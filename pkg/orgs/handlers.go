package orgs

import (
	"errors"
	"net/http"

	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/middleware"
	"github.com/kestrelhq/roster/pkg/observability"
)

// Handler serves the organization, membership and join-request HTTP API
type Handler struct {
	service *Service
}

// NewHandler creates an organization HTTP handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createOrgRequest struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// Create handles POST /api/orgs
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), actor.UserID, req.Name, req.Slug, req.Emoji, req.Color)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to create organization")
		return
	}
	httputil.WriteCreated(w, org)
}

// List handles GET /api/orgs, returning the actor's organizations
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	result, err := h.service.ListForUser(r.Context(), actor.UserID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list organizations")
		return
	}
	if result == nil {
		result = []Organization{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"organizations": result})
}

// CheckSlug handles GET /api/orgs/slug-check?slug=candidate
func (h *Handler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	candidate := httputil.ParseQueryString(r, "slug", "")
	if candidate == "" {
		httputil.WriteValidationError(w, "slug query parameter is required")
		return
	}

	available, err := h.service.CheckSlugAvailable(r.Context(), candidate)
	if err != nil {
		if errors.Is(err, ErrInvalidSlug) {
			httputil.WriteSuccess(w, map[string]interface{}{"available": false, "reason": err.Error()})
			return
		}
		h.writeServiceError(w, r, err, "failed to check slug")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"available": available})
}

// Get handles GET /api/orgs/{slug}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org := OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	httputil.WriteSuccess(w, org)
}

type updateOrgRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// Update handles PUT /api/orgs/{slug}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	var req updateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	if err := h.service.UpdateSettings(r.Context(), org.ID, actor.UserID, req.Name, req.Emoji, req.Color); err != nil {
		h.writeServiceError(w, r, err, "failed to update organization")
		return
	}
	httputil.WriteNoContent(w)
}

// Delete handles DELETE /api/orgs/{slug}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	if err := h.service.Delete(r.Context(), org.ID, actor.UserID); err != nil {
		h.writeServiceError(w, r, err, "failed to delete organization")
		return
	}
	httputil.WriteNoContent(w)
}

// ListMembers handles GET /api/orgs/{slug}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	org := OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	members, err := h.service.ListMembers(r.Context(), org.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list members")
		return
	}
	if members == nil {
		members = []MemberWithIdentity{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"members": members})
}

type assignRoleRequest struct {
	RoleID *int64 `json:"role_id"`
}

// AssignRole handles PUT /api/orgs/{slug}/members/{memberID}/role
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	memberID, ok := httputil.ParsePathInt64OrError(w, r, "memberID")
	if !ok {
		return
	}
	if !h.memberBelongsToOrg(w, r, memberID, org.ID) {
		return
	}

	var req assignRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.AssignRole(r.Context(), memberID, req.RoleID, actor.UserID); err != nil {
		h.writeServiceError(w, r, err, "failed to assign role")
		return
	}
	httputil.WriteNoContent(w)
}

// RemoveMember handles DELETE /api/orgs/{slug}/members/{memberID}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	memberID, ok := httputil.ParsePathInt64OrError(w, r, "memberID")
	if !ok {
		return
	}
	if !h.memberBelongsToOrg(w, r, memberID, org.ID) {
		return
	}

	if err := h.service.RemoveMember(r.Context(), memberID, actor.UserID); err != nil {
		h.writeServiceError(w, r, err, "failed to remove member")
		return
	}
	httputil.WriteNoContent(w)
}

type joinRequestRequest struct {
	JoinCode string `json:"join_code"`
}

// CreateJoinRequest handles POST /api/join-requests
func (h *Handler) CreateJoinRequest(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	var req joinRequestRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.JoinCode, "join_code") {
		return
	}

	created, err := h.service.CreateJoinRequest(r.Context(), actor.UserID, req.JoinCode)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to create join request")
		return
	}
	httputil.WriteCreated(w, created)
}

// ListJoinRequests handles GET /api/orgs/{slug}/join-requests
func (h *Handler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	org := OrgFromContext(r.Context())
	if org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	status := httputil.ParseQueryString(r, "status", StatusPending)
	if status != StatusPending && status != StatusApproved && status != StatusRejected {
		httputil.WriteValidationError(w, "invalid status filter")
		return
	}

	requests, err := h.service.ListJoinRequests(r.Context(), org.ID, status)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list join requests")
		return
	}
	if requests == nil {
		requests = []JoinRequestWithIdentity{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"join_requests": requests})
}

type approveRequest struct {
	RoleID *int64 `json:"role_id"`
}

// ApproveJoinRequest handles POST /api/orgs/{slug}/join-requests/{requestID}/approve
func (h *Handler) ApproveJoinRequest(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	requestID, ok := httputil.ParsePathInt64OrError(w, r, "requestID")
	if !ok {
		return
	}

	var req approveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.ApproveJoinRequest(r.Context(), org.ID, requestID, req.RoleID, actor.UserID); err != nil {
		h.writeServiceError(w, r, err, "failed to approve join request")
		return
	}
	httputil.WriteNoContent(w)
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// RejectJoinRequest handles POST /api/orgs/{slug}/join-requests/{requestID}/reject
func (h *Handler) RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	org := OrgFromContext(r.Context())
	if actor == nil || org == nil {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}

	requestID, ok := httputil.ParsePathInt64OrError(w, r, "requestID")
	if !ok {
		return
	}

	var req rejectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.RejectJoinRequest(r.Context(), org.ID, requestID, req.Notes, actor.UserID); err != nil {
		h.writeServiceError(w, r, err, "failed to reject join request")
		return
	}
	httputil.WriteNoContent(w)
}

type activeOrgRequest struct {
	OrganizationID int64 `json:"organization_id"`
}

// SetActiveOrg handles PUT /api/me/active-org
func (h *Handler) SetActiveOrg(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	var req activeOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.SetActiveOrganization(r.Context(), actor.UserID, req.OrganizationID); err != nil {
		h.writeServiceError(w, r, err, "failed to set active organization")
		return
	}
	httputil.WriteNoContent(w)
}

// GetActiveOrg handles GET /api/me/active-org
func (h *Handler) GetActiveOrg(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	org, err := h.service.GetActiveOrganization(r.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteSuccess(w, map[string]interface{}{"organization": nil})
			return
		}
		h.writeServiceError(w, r, err, "failed to get active organization")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"organization": org})
}

// memberBelongsToOrg verifies the member is owned by the organization in the
// request context. Cross-organization member ids surface as not found.
func (h *Handler) memberBelongsToOrg(w http.ResponseWriter, r *http.Request, memberID, orgID int64) bool {
	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "member not found")
			return false
		}
		observability.GetLogger(r.Context()).WithError(err).Error("failed to get member")
		httputil.WriteInternalError(w, err)
		return false
	}
	if member.OrganizationID != orgID {
		httputil.WriteNotFoundError(w, "member not found")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, ErrInvalidSlug):
		httputil.WriteValidationError(w, err.Error())
	case errors.Is(err, ErrSlugTaken):
		httputil.WriteConflict(w, "slug already taken")
	case errors.Is(err, ErrInvalidCode):
		httputil.WriteValidationError(w, "invalid join code")
	case errors.Is(err, ErrAlreadyMember):
		httputil.WriteConflict(w, "already a member of this organization")
	case errors.Is(err, ErrDuplicateRequest):
		httputil.WriteConflict(w, "a join request is already pending")
	case errors.Is(err, ErrAlreadyProcessed):
		httputil.WriteConflict(w, "join request was already processed")
	case errors.Is(err, ErrRoleOrgMismatch):
		httputil.WriteValidationError(w, "role belongs to a different organization")
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, "concurrent modification, please retry")
	default:
		observability.GetLogger(r.Context()).WithError(err).Error(logMsg)
		httputil.WriteInternalError(w, err)
	}
}
