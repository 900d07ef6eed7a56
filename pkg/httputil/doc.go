// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//
// Error responses:
//
//	httputil.WriteValidationError(w, "name is required")
//	httputil.WriteNotFoundError(w, "role not found")
//	httputil.WriteConflict(w, "a role with this name already exists")
//	httputil.WriteUnauthorized(w, "authentication required")
//	httputil.WriteForbidden(w, "permission denied")
//	httputil.WriteTooManyRequests(w, "rate limit exceeded")
//	httputil.WriteInternalError(w, err)
//
// # Request Parsing
//
// JSON bodies:
//
//	var req createOrgRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "memberID")
//	status := httputil.ParseQueryString(r, "status", "pending")
//
// # Related Packages
//
//   - pkg/middleware: Request-level middleware built on these helpers
package httputil
