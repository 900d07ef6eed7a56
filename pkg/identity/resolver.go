// Package identity resolves user ids to display identity through the
// external identity service. Roster stores only user ids; emails and display
// names live in the identity service fronting it.
package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelhq/roster/pkg/orgs"
)

// HTTPResolver implements orgs.IdentityResolver against a JSON batch-lookup
// endpoint. Callers treat resolution as best effort, so the client keeps a
// short timeout rather than retrying.
type HTTPResolver struct {
	url    string
	client *http.Client
}

// NewHTTPResolver creates a resolver posting batch lookups to url
func NewHTTPResolver(url string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type lookupRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

type lookupResponse struct {
	Identities []struct {
		UserID      int64  `json:"user_id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	} `json:"identities"`
}

// Resolve posts the user ids and returns the identities the service knows.
// Ids absent from the response are simply missing from the result map.
func (r *HTTPResolver) Resolve(userIDs []int64) (map[int64]orgs.Identity, error) {
	body, err := json.Marshal(lookupRequest{UserIDs: userIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity lookup: %w", err)
	}

	resp, err := r.client.Post(r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity lookup returned status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	result := make(map[int64]orgs.Identity, len(decoded.Identities))
	for _, ident := range decoded.Identities {
		result[ident.UserID] = orgs.Identity{
			UserID:      ident.UserID,
			Email:       ident.Email,
			DisplayName: ident.DisplayName,
		}
	}
	return result, nil
}
