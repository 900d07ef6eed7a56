package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kestrelhq/roster/pkg/contextkeys"
	"github.com/kestrelhq/roster/pkg/httputil"
)

// Identity headers set by the fronting gateway after session validation.
// Authentication happens out-of-band; this service only authorizes.
const (
	HeaderUserID    = "X-Roster-User-Id"
	HeaderUserEmail = "X-Roster-User-Email"
)

// Actor is the authenticated user making the request
type Actor struct {
	UserID int64
	Email  string
}

// ActorFromContext returns the acting user, or nil for unauthenticated
// requests.
func ActorFromContext(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(contextkeys.ActorKey).(*Actor); ok {
		return actor
	}
	return nil
}

// ActorMiddleware resolves the gateway identity headers into an Actor.
// Requests without a valid user id are rejected with 401.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}

		actor := &Actor{
			UserID: userID,
			Email:  r.Header.Get(HeaderUserEmail),
		}
		next.ServeHTTP(w, r.WithContext(contextkeys.WithActor(r.Context(), actor)))
	})
}
