// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/kestrelhq/roster/pkg/contextkeys"
//	ctx = context.WithValue(ctx, contextkeys.ActorKey, actor)
//	actor := ctx.Value(contextkeys.ActorKey).(*middleware.Actor)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains the acting user resolved by the identity collaborator.
	// Set by: middleware.ActorMiddleware (pkg/middleware/auth.go)
	// Required by: all protected endpoints, permission middleware
	// Type: *middleware.Actor
	ActorKey Key = "actor"

	// OrgKey contains *orgs.Organization
	// Set by: orgs.Service.ContextMiddleware (pkg/orgs/middleware.go)
	// Required by: org-scoped endpoints
	// Type: *orgs.Organization
	OrgKey Key = "organization"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestIDMiddleware
	// Used by: logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability layer
	// Used by: handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithActor adds the acting user to the context
func WithActor(ctx context.Context, actor interface{}) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// WithOrg adds organization to the context
func WithOrg(ctx context.Context, org interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
