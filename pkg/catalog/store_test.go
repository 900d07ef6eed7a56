package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestSeed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	for _, e := range entries {
		mock.ExpectExec(`INSERT INTO permissions`).
			WithArgs(string(e.Name), e.Description, e.Category).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	err := store.Seed(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify(t *testing.T) {
	t.Run("all names present", func(t *testing.T) {
		store, mock := newMockStore(t)

		rows := sqlmock.NewRows([]string{"name"})
		for _, e := range entries {
			rows.AddRow(string(e.Name))
		}
		mock.ExpectQuery(`SELECT name FROM permissions`).WillReturnRows(rows)

		assert.NoError(t, store.Verify(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing name fails", func(t *testing.T) {
		store, mock := newMockStore(t)

		rows := sqlmock.NewRows([]string{"name"}).AddRow("tasks.create")
		mock.ExpectQuery(`SELECT name FROM permissions`).WillReturnRows(rows)

		err := store.Verify(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing from database")
	})
}

func TestList(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "category"}).
		AddRow(1, "tasks.create", "Create tasks", "tasks").
		AddRow(2, "tasks.edit", "Edit any task", "tasks")
	mock.ExpectQuery(`SELECT id, name, description, category`).WillReturnRows(rows)

	perms, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, TasksCreate, perms[0].Name)
	assert.Equal(t, int64(2), perms[1].ID)
}

func TestLookupID(t *testing.T) {
	t.Run("caches after first lookup", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT id FROM permissions WHERE name`).
			WithArgs("tasks.create").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		id, err := store.LookupID(context.Background(), TasksCreate)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)

		// Second lookup must hit the cache, not the database
		id, err = store.LookupID(context.Background(), TasksCreate)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown name fails", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT id FROM permissions WHERE name`).
			WithArgs("tasks.explode").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.LookupID(context.Background(), Name("tasks.explode"))
		assert.Error(t, err)
	})
}
