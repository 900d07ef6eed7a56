package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("matches unique violation code", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "organizations_slug_key"}
		assert.True(t, IsUniqueViolation(err, ""))
		assert.True(t, IsUniqueViolation(err, "organizations_slug_key"))
	})

	t.Run("rejects wrong constraint", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "organizations_slug_key"}
		assert.False(t, IsUniqueViolation(err, "organizations_join_code_key"))
	})

	t.Run("rejects other codes", func(t *testing.T) {
		err := &pq.Error{Code: "23503"}
		assert.False(t, IsUniqueViolation(err, ""))
	})

	t.Run("unwraps wrapped errors", func(t *testing.T) {
		wrapped := fmt.Errorf("failed to insert: %w", &pq.Error{Code: "23505"})
		assert.True(t, IsUniqueViolation(wrapped, ""))
	})

	t.Run("rejects non-pq errors", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	})
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}
