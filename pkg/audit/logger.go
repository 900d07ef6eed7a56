package audit

import "context"

// Logger records audit events. Recording failures must not fail the
// business operation; callers log and continue.
type Logger interface {
	Record(ctx context.Context, event Event) error
}

// NopLogger discards all events. Used in tests and when auditing is
// disabled.
type NopLogger struct{}

// Record implements Logger
func (NopLogger) Record(ctx context.Context, event Event) error {
	return nil
}
