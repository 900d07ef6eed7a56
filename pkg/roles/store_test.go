package roles

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestCreateRole(t *testing.T) {
	t.Run("creates role with permissions", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs(int64(1), "Coordinator", "Runs the show", false).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectExec(`INSERT INTO role_permissions`).
			WithArgs(int64(42), int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO role_permissions`).
			WithArgs(int64(42), int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		roleID, err := store.CreateRole(context.Background(), 1, "Coordinator", "Runs the show", []int64{10, 11}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(42), roleID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears previous default before inserting a new default", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE roles SET is_default = FALSE`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs(int64(1), "Newcomer", "", true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))
		mock.ExpectCommit()

		roleID, err := store.CreateRole(context.Background(), 1, "Newcomer", "", nil, true)
		require.NoError(t, err)
		assert.Equal(t, int64(43), roleID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name maps to ErrDuplicateName", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs(int64(1), "Coordinator", "", false).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "roles_org_name_key"})
		mock.ExpectRollback()

		_, err := store.CreateRole(context.Background(), 1, "Coordinator", "", nil, false)
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty permission list is valid", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs(int64(1), "Observer", "", false).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(44))
		mock.ExpectCommit()

		_, err := store.CreateRole(context.Background(), 1, "Observer", "", []int64{}, false)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries once on serialization failure", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO roles`).
			WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO roles`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(45))
		mock.ExpectCommit()

		roleID, err := store.CreateRole(context.Background(), 1, "Coordinator", "", nil, false)
		require.NoError(t, err)
		assert.Equal(t, int64(45), roleID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second serialization failure maps to ErrConflict", func(t *testing.T) {
		store, mock := newMockStore(t)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO roles`).
				WillReturnError(&pq.Error{Code: "40001"})
			mock.ExpectRollback()
		}

		_, err := store.CreateRole(context.Background(), 1, "Coordinator", "", nil, false)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateRole(t *testing.T) {
	t.Run("replaces fields and permission set", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM roles WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectExec(`UPDATE roles\s+SET name`).
			WithArgs("Coordinator", "Updated", false, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM role_permissions`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO role_permissions`).
			WithArgs(int64(42), int64(12)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.UpdateRole(context.Background(), 42, "Coordinator", "Updated", []int64{12}, false)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears other defaults when promoting to default", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM roles WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(1))
		mock.ExpectExec(`UPDATE roles SET is_default = FALSE`).
			WithArgs(int64(1), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE roles\s+SET name`).
			WithArgs("Coordinator", "", true, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM role_permissions`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := store.UpdateRole(context.Background(), 42, "Coordinator", "", nil, true)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing role maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT organization_id FROM roles WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))
		mock.ExpectRollback()

		err := store.UpdateRole(context.Background(), 99, "Coordinator", "", nil, false)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteRole(t *testing.T) {
	t.Run("deletes unassigned role", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM members WHERE role_id`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM roles WHERE id`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.DeleteRole(context.Background(), 42)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("assigned role maps to ErrRoleInUse", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM members WHERE role_id`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectRollback()

		err := store.DeleteRole(context.Background(), 42)
		assert.ErrorIs(t, err, ErrRoleInUse)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing role maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM members WHERE role_id`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM roles WHERE id`).
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.DeleteRole(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRoles(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "is_default", "created_at", "updated_at"}).
		AddRow(1, 1, "Coordinator", "Runs the show", false, now, now).
		AddRow(2, 1, "Newcomer", "", true, now, now)
	mock.ExpectQuery(`SELECT id, organization_id, name, description, is_default`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	result, err := store.ListRoles(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Coordinator", result[0].Name)
	assert.True(t, result[1].IsDefault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoleWithPermissions(t *testing.T) {
	t.Run("returns role and permission set", func(t *testing.T) {
		store, mock := newMockStore(t)

		now := time.Now()
		mock.ExpectQuery(`SELECT id, organization_id, name, description, is_default`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "is_default", "created_at", "updated_at"}).
				AddRow(42, 1, "Coordinator", "", false, now, now))
		mock.ExpectQuery(`SELECT p.id, p.name, p.description, p.category`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "category"}).
				AddRow(10, "tasks.create", "Create tasks", "tasks").
				AddRow(11, "tasks.edit", "Edit any task", "tasks"))

		result, err := store.GetRoleWithPermissions(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "Coordinator", result.Name)
		require.Len(t, result.Permissions, 2)
		assert.Equal(t, "tasks.create", string(result.Permissions[0].Name))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("role without grants returns empty set", func(t *testing.T) {
		store, mock := newMockStore(t)

		now := time.Now()
		mock.ExpectQuery(`SELECT id, organization_id, name, description, is_default`).
			WithArgs(int64(44)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "is_default", "created_at", "updated_at"}).
				AddRow(44, 1, "Observer", "", false, now, now))
		mock.ExpectQuery(`SELECT p.id, p.name, p.description, p.category`).
			WithArgs(int64(44)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "category"}))

		result, err := store.GetRoleWithPermissions(context.Background(), 44)
		require.NoError(t, err)
		assert.NotNil(t, result.Permissions)
		assert.Empty(t, result.Permissions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing role maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT id, organization_id, name, description, is_default`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.GetRoleWithPermissions(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
