package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	identities map[int64]Identity
	err        error
}

func (s *stubResolver) Resolve(userIDs []int64) (map[int64]Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identities, nil
}

func newMockServiceWithResolver(t *testing.T, resolver IdentityResolver) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, db, nil, nil, resolver), mock
}

func memberRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role_id", "is_admin", "joined_at", "role_name"}).
		AddRow(1, 1, 10, nil, true, now, "").
		AddRow(2, 1, 20, 7, false, now, "Coordinator")
}

func TestListMembers(t *testing.T) {
	t.Run("joins role names and identities", func(t *testing.T) {
		resolver := &stubResolver{identities: map[int64]Identity{
			10: {UserID: 10, Email: "founder@example.com", DisplayName: "Founder"},
			20: {UserID: 20, Email: "crew@example.com", DisplayName: "Crew"},
		}}
		service, mock := newMockServiceWithResolver(t, resolver)

		mock.ExpectQuery(`SELECT m.id, m.organization_id`).
			WithArgs(int64(1)).
			WillReturnRows(memberRows())

		members, err := service.ListMembers(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.True(t, members[0].IsAdmin)
		assert.Equal(t, "founder@example.com", members[0].Email)
		assert.Equal(t, "Coordinator", members[1].RoleName)
		assert.Equal(t, "Crew", members[1].DisplayName)
	})

	t.Run("identity failure is best effort", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("identity service down")}
		service, mock := newMockServiceWithResolver(t, resolver)

		mock.ExpectQuery(`SELECT m.id, m.organization_id`).
			WithArgs(int64(1)).
			WillReturnRows(memberRows())

		members, err := service.ListMembers(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Empty(t, members[0].Email)
	})

	t.Run("no resolver skips enrichment", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectQuery(`SELECT m.id, m.organization_id`).
			WithArgs(int64(1)).
			WillReturnRows(memberRows())

		members, err := service.ListMembers(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, members, 2)
	})
}

func TestAssignRole(t *testing.T) {
	t.Run("assigns role in same organization", func(t *testing.T) {
		service, mock := newMockService(t)
		roleID := int64(7)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM members WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectQuery(`SELECT organization_id FROM roles`).
			WithArgs(roleID).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectExec(`UPDATE members SET role_id`).
			WithArgs(&roleID, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.AssignRole(context.Background(), 2, &roleID, 10)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil role clears assignment", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM members WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectExec(`UPDATE members SET role_id`).
			WithArgs(nil, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.AssignRole(context.Background(), 2, nil, 10)
		assert.NoError(t, err)
	})

	t.Run("cross-organization role maps to ErrRoleOrgMismatch", func(t *testing.T) {
		service, mock := newMockService(t)
		roleID := int64(7)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM members WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectQuery(`SELECT organization_id FROM roles`).
			WithArgs(roleID).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(2))
		mock.ExpectRollback()

		err := service.AssignRole(context.Background(), 2, &roleID, 10)
		assert.ErrorIs(t, err, ErrRoleOrgMismatch)
	})

	t.Run("missing member maps to ErrNotFound", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM members WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))
		mock.ExpectRollback()

		err := service.AssignRole(context.Background(), 99, nil, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRemoveMember(t *testing.T) {
	memberRow := func(id, orgID, userID int64, isAdmin bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role_id", "is_admin", "joined_at"}).
			AddRow(id, orgID, userID, nil, isAdmin, time.Now())
	}

	t.Run("removes member", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectQuery(`SELECT id, organization_id, user_id, role_id`).
			WithArgs(int64(2)).
			WillReturnRows(memberRow(2, 1, 20, false))
		mock.ExpectExec(`DELETE FROM members`).
			WithArgs(int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RemoveMember(context.Background(), 2, 10)
		assert.NoError(t, err)
	})

	t.Run("admin members can be removed", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectQuery(`SELECT id, organization_id, user_id, role_id`).
			WithArgs(int64(1)).
			WillReturnRows(memberRow(1, 1, 10, true))
		mock.ExpectExec(`DELETE FROM members`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RemoveMember(context.Background(), 1, 10)
		assert.NoError(t, err)
	})

	t.Run("missing member maps to ErrNotFound", func(t *testing.T) {
		service, mock := newMockService(t)

		mock.ExpectQuery(`SELECT id, organization_id, user_id, role_id`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := service.RemoveMember(context.Background(), 99, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
