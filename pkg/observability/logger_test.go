package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kestrelhq/roster/pkg/contextkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("org_id", int64(42)).Info("organization created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "organization created", entry["msg"])
	assert.Equal(t, float64(42), entry["org_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("not emitted")
	logger.Info("not emitted either")
	assert.Zero(t, buf.Len())

	logger.Warn("emitted")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("operation failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])

	// nil error is a no-op
	assert.Same(t, logger, logger.WithError(nil))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-123")

	FromContext(ctx).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestGetLoggerFallback(t *testing.T) {
	// A context without a logger yields a usable default
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)
}
