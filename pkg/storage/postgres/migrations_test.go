package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	t.Run("applies all migrations on fresh database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		for _, m := range migrations {
			mock.ExpectBegin()
			mock.ExpectExec("CREATE TABLE").
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("INSERT INTO schema_migrations").
				WithArgs(m.Version, m.Description).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}

		err = RunMigrations(context.Background(), db)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips already applied migrations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"version"})
		for _, m := range migrations {
			rows.AddRow(m.Version)
		}

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(rows)

		err = RunMigrations(context.Background(), db)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("versions are sequential and unique", func(t *testing.T) {
		seen := make(map[int]bool)
		for i, m := range migrations {
			assert.Equal(t, i+1, m.Version, "migration %d out of order", i)
			assert.False(t, seen[m.Version])
			seen[m.Version] = true
			assert.NotEmpty(t, m.Description)
			assert.NotEmpty(t, m.SQL)
		}
	})
}
