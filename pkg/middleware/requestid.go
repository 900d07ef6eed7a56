package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kestrelhq/roster/pkg/contextkeys"
)

// HeaderRequestID carries the request id to and from clients
const HeaderRequestID = "X-Request-Id"

// RequestIDMiddleware assigns each request a UUID, honoring an id already
// set by the fronting gateway, and echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithRequestID(r.Context(), requestID)))
	})
}
