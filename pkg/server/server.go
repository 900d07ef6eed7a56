package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/authz"
	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/contextkeys"
	"github.com/kestrelhq/roster/pkg/middleware"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/orgs"
	"github.com/kestrelhq/roster/pkg/roles"
)

// Deps are the assembled components the router serves
type Deps struct {
	Orgs        *orgs.Service
	OrgHandler  *orgs.Handler
	RoleHandler *roles.Handler
	CatHandler  *catalog.Handler
	Checker     *authz.Checker
	Metrics     *observability.Metrics
	Logger      *observability.Logger

	// AuditLog backs the admin audit query endpoint; nil disables it
	AuditLog *audit.DBLogger

	// JoinLimiter throttles join-code submissions; nil disables limiting
	JoinLimiter *middleware.RateLimiter
}

// NewRouter builds the API router. All routes require an authenticated
// actor; org-scoped routes additionally resolve the organization and apply
// per-route permission guards.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(loggerMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.HTTPMiddleware)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.ActorMiddleware)

	// Global scope
	api.HandleFunc("/permissions", deps.CatHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/orgs", deps.OrgHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/orgs", deps.OrgHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/orgs/slug-check", deps.OrgHandler.CheckSlug).Methods(http.MethodGet)
	api.HandleFunc("/me/active-org", deps.OrgHandler.GetActiveOrg).Methods(http.MethodGet)
	api.HandleFunc("/me/active-org", deps.OrgHandler.SetActiveOrg).Methods(http.MethodPut)

	// Join-code submission, throttled since codes are guessable
	joinCreate := http.Handler(http.HandlerFunc(deps.OrgHandler.CreateJoinRequest))
	if deps.JoinLimiter != nil {
		joinCreate = deps.JoinLimiter.Middleware(joinCreate)
	}
	api.Handle("/join-requests", joinCreate).Methods(http.MethodPost)

	// Organization scope
	org := api.PathPrefix("/orgs/{slug}").Subrouter()
	org.Use(deps.Orgs.ContextMiddleware)

	member := deps.Checker.RequireMember
	admin := deps.Checker.RequireAdmin
	perm := deps.Checker.RequirePermission

	org.Handle("", member(http.HandlerFunc(deps.OrgHandler.Get))).Methods(http.MethodGet)
	org.Handle("", perm(catalog.OrgEditSettings)(http.HandlerFunc(deps.OrgHandler.Update))).Methods(http.MethodPut)
	org.Handle("", admin(http.HandlerFunc(deps.OrgHandler.Delete))).Methods(http.MethodDelete)

	org.Handle("/members", member(http.HandlerFunc(deps.OrgHandler.ListMembers))).Methods(http.MethodGet)
	org.Handle("/members/{memberID}/role", admin(http.HandlerFunc(deps.OrgHandler.AssignRole))).Methods(http.MethodPut)
	org.Handle("/members/{memberID}", perm(catalog.MembersRemove)(http.HandlerFunc(deps.OrgHandler.RemoveMember))).Methods(http.MethodDelete)

	org.Handle("/roles", member(http.HandlerFunc(deps.RoleHandler.List))).Methods(http.MethodGet)
	org.Handle("/roles", admin(http.HandlerFunc(deps.RoleHandler.Create))).Methods(http.MethodPost)
	org.Handle("/roles/{roleID}", member(http.HandlerFunc(deps.RoleHandler.Get))).Methods(http.MethodGet)
	org.Handle("/roles/{roleID}", admin(http.HandlerFunc(deps.RoleHandler.Update))).Methods(http.MethodPut)
	org.Handle("/roles/{roleID}", admin(http.HandlerFunc(deps.RoleHandler.Delete))).Methods(http.MethodDelete)

	org.Handle("/join-requests", perm(catalog.MembersInvite)(http.HandlerFunc(deps.OrgHandler.ListJoinRequests))).Methods(http.MethodGet)
	org.Handle("/join-requests/{requestID}/approve", perm(catalog.MembersInvite)(http.HandlerFunc(deps.OrgHandler.ApproveJoinRequest))).Methods(http.MethodPost)
	org.Handle("/join-requests/{requestID}/reject", perm(catalog.MembersInvite)(http.HandlerFunc(deps.OrgHandler.RejectJoinRequest))).Methods(http.MethodPost)

	if deps.AuditLog != nil {
		auditHandler := audit.NewHandler(deps.AuditLog, func(r *http.Request) (int64, bool) {
			if o := orgs.OrgFromContext(r.Context()); o != nil {
				return o.ID, true
			}
			return 0, false
		})
		org.Handle("/audit-events", admin(http.HandlerFunc(auditHandler.List))).Methods(http.MethodGet)
	}

	return r
}

// loggerMiddleware attaches a request-scoped logger carrying the request id
func loggerMiddleware(logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}
			scoped := logger
			if requestID := contextkeys.GetRequestID(r.Context()); requestID != "" {
				scoped = logger.WithField("request_id", requestID)
			}
			next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), scoped)))
		})
	}
}
