package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLogger(t *testing.T) (*DBLogger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDBLogger(db), mock
}

func int64Ptr(v int64) *int64 { return &v }

func TestRecord(t *testing.T) {
	t.Run("inserts event with details", func(t *testing.T) {
		logger, mock := newMockLogger(t)

		mock.ExpectExec(`INSERT INTO audit_logs`).
			WithArgs(EventMemberAdded, int64Ptr(1), int64Ptr(10), int64Ptr(20), []byte(`{"source":"join_request"}`)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := logger.Record(context.Background(), Event{
			EventType:      EventMemberAdded,
			OrganizationID: int64Ptr(1),
			ActorID:        int64Ptr(10),
			SubjectID:      int64Ptr(20),
			Details:        map[string]interface{}{"source": "join_request"},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil details marshal to empty object", func(t *testing.T) {
		logger, mock := newMockLogger(t)

		mock.ExpectExec(`INSERT INTO audit_logs`).
			WithArgs(EventOrgCreated, int64Ptr(1), int64Ptr(10), nil, []byte(`{}`)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := logger.Record(context.Background(), Event{
			EventType:      EventOrgCreated,
			OrganizationID: int64Ptr(1),
			ActorID:        int64Ptr(10),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSearch(t *testing.T) {
	t.Run("filters by organization and event types", func(t *testing.T) {
		logger, mock := newMockLogger(t)

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "event_type", "organization_id", "actor_id", "subject_id", "details", "created_at"}).
			AddRow(5, EventMemberRemoved, 1, 10, 20, []byte(`{"reason":"left"}`), now)
		mock.ExpectQuery(`SELECT id, event_type`).
			WillReturnRows(rows)

		events, err := logger.Search(context.Background(), Filter{
			OrganizationID: 1,
			EventTypes:     []string{EventMemberRemoved},
			Limit:          10,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventMemberRemoved, events[0].EventType)
		assert.Equal(t, "left", events[0].Details["reason"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaults limit when unset", func(t *testing.T) {
		logger, mock := newMockLogger(t)

		mock.ExpectQuery(`SELECT id, event_type`).
			WithArgs(100).
			WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "organization_id", "actor_id", "subject_id", "details", "created_at"}))

		events, err := logger.Search(context.Background(), Filter{})
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPurge(t *testing.T) {
	logger, mock := newMockLogger(t)
	purger := NewPurger(logger, 24*time.Hour, nil)

	mock.ExpectExec(`DELETE FROM audit_logs WHERE created_at`).
		WillReturnResult(sqlmock.NewResult(0, 17))

	removed, err := purger.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
