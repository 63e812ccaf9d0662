package folders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var folderCols = []string{"id", "user_id", "name", "description", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^SELECT id, user_id, name, description, created_at, updated_at FROM folders WHERE user_id = \$1 ORDER BY created_at, id$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(folderCols).
			AddRow("f1", "u1", "Reading", "", now, now).
			AddRow("f2", "u1", "Work", "stuff", now, now))

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Reading", got[0].Name)
	assert.Equal(t, "stuff", got[1].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_EmptyIsNotNil(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM folders WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(folderCols))

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByUser_RowError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM folders WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows(folderCols).
			AddRow("f1", "u1", "Reading", "", time.Now(), time.Now()).
			RowError(0, errors.New("broken row")))

	_, err := repo.ListByUser(context.Background(), "u1")
	require.Error(t, err)
}

func TestGetOwned_ScopedByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	q := `^SELECT .* FROM folders WHERE id = \$1 AND user_id = \$2$`
	mock.ExpectQuery(q).WithArgs("f1", "u1").
		WillReturnRows(sqlmock.NewRows(folderCols).AddRow("f1", "u1", "Reading", "", now, now))
	mock.ExpectQuery(q).WithArgs("f1", "u2").WillReturnError(sql.ErrNoRows)

	f, err := repo.GetOwned(context.Background(), "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "u1", f.UserID)

	_, err = repo.GetOwned(context.Background(), "u2", "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_Unavailable(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^SELECT .* FROM folders WHERE id = \$1$`).
		WithArgs("f1").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetByID(context.Background(), "f1")
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}

func TestNameTaken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT EXISTS .* FROM folders WHERE user_id = \$1 AND name = \$2`).
		WithArgs("u1", "Reading", nil).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "Reading", "f1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := repo.NameTaken(context.Background(), "u1", "Reading", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NameTaken(context.Background(), "u1", "Reading", "f1")
	require.NoError(t, err)
	assert.False(t, taken, "a folder does not collide with itself")
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^INSERT INTO folders \(id, user_id, name, description\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING created_at, updated_at$`).
		WithArgs("f1", "u1", "Reading", "later").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	f, err := repo.Create(context.Background(), &models.Folder{ID: "f1", UserID: "u1", Name: "Reading", Description: "later"})
	require.NoError(t, err)
	assert.Equal(t, now, f.CreatedAt)
}

func TestCreate_UniqueViolationIsDuplicateName(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO folders`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "folders_user_id_name_key"})

	_, err := repo.Create(context.Background(), &models.Folder{ID: "f1", UserID: "u1", Name: "Reading"})
	assert.ErrorIs(t, err, common.ErrDuplicateName)
}

func TestUpdate(t *testing.T) {
	q := `^UPDATE folders SET name = \$3, description = \$4, updated_at = now\(\) WHERE id = \$1 AND user_id = \$2 RETURNING`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("f1", "u1", "Books", "d").
			WillReturnRows(sqlmock.NewRows(folderCols).AddRow("f1", "u1", "Books", "d", now, now))

		f, err := repo.Update(context.Background(), &models.Folder{ID: "f1", UserID: "u1", Name: "Books", Description: "d"})
		require.NoError(t, err)
		assert.Equal(t, "Books", f.Name)
	})

	t.Run("not owned", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := repo.Update(context.Background(), &models.Folder{ID: "f1", UserID: "u2", Name: "Books"})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Update(context.Background(), &models.Folder{ID: "f1", UserID: "u1", Name: "Work"})
		assert.ErrorIs(t, err, common.ErrDuplicateName)
	})
}

func TestDelete(t *testing.T) {
	q := `^DELETE FROM folders WHERE id = \$1 AND user_id = \$2$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("f1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("f1", "u2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("f2", "u1").WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Delete(context.Background(), "u1", "f1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u2", "f1"), common.ErrorNotFound)
	assert.EqualError(t, repo.Delete(context.Background(), "u1", "f2"), "db error: db down")
}
