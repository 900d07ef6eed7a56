package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/roster/pkg/observability"
)

// Purger deletes audit events older than the retention window. It is run on
// a schedule by the server's cron runner.
type Purger struct {
	logger    *DBLogger
	retention time.Duration
	log       *observability.Logger
}

// NewPurger creates a retention purger
func NewPurger(logger *DBLogger, retention time.Duration, log *observability.Logger) *Purger {
	return &Purger{logger: logger, retention: retention, log: log}
}

// Purge deletes events past retention and returns the number removed
func (p *Purger) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.retention)
	result, err := p.logger.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	return result.RowsAffected()
}

// Run executes a purge and logs the outcome; used as a cron job body
func (p *Purger) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := p.Purge(ctx)
	if err != nil {
		p.log.WithError(err).Error("audit retention purge failed")
		return
	}
	p.log.WithField("removed", removed).Info("audit retention purge complete")
}
