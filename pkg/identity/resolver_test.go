package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolver(t *testing.T) {
	t.Run("resolves known ids", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				UserIDs []int64 `json:"user_ids"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []int64{10, 20}, req.UserIDs)

			json.NewEncoder(w).Encode(map[string]interface{}{
				"identities": []map[string]interface{}{
					{"user_id": 10, "email": "founder@example.com", "display_name": "Founder"},
				},
			})
		}))
		defer srv.Close()

		resolver := NewHTTPResolver(srv.URL, time.Second)
		identities, err := resolver.Resolve([]int64{10, 20})
		require.NoError(t, err)
		require.Len(t, identities, 1)
		assert.Equal(t, "founder@example.com", identities[10].Email)
		assert.Equal(t, "Founder", identities[10].DisplayName)

		_, ok := identities[20]
		assert.False(t, ok, "unknown ids are absent, not errors")
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		resolver := NewHTTPResolver(srv.URL, time.Second)
		_, err := resolver.Resolve([]int64{10})
		assert.Error(t, err)
	})

	t.Run("unreachable service is an error", func(t *testing.T) {
		resolver := NewHTTPResolver("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := resolver.Resolve([]int64{10})
		assert.Error(t, err)
	})
}
