package links

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

const linkColumns = `id, folder_id, title, url, note, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.Link, error) {
	var l models.Link
	if err := row.Scan(&l.ID, &l.FolderID, &l.Title, &l.URL, &l.Note, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return dbx.WrapError(err)
}

// ListByFolder returns the folder's links oldest first.
func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE folder_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, dbx.WrapError(err)
	}
	defer rows.Close()

	result := make([]*models.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, dbx.WrapError(err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapError(err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`

	l, err := scanLink(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

// Create inserts link with the id chosen by the caller.
func (r *PostgresRepository) Create(ctx context.Context, link *models.Link) (*models.Link, error) {
	query :=
		`INSERT INTO links (id, folder_id, title, url, note)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, link.ID, link.FolderID, link.Title, link.URL, link.Note).
		Scan(&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return link, nil
}

// Update overwrites title, url and note. The folder is never changed here.
func (r *PostgresRepository) Update(ctx context.Context, link *models.Link) (*models.Link, error) {
	query :=
		`UPDATE links SET title = $2, url = $3, note = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + linkColumns

	l, err := scanLink(r.db.QueryRowContext(ctx, query, link.ID, link.Title, link.URL, link.Note))
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM links WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return dbx.WrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.WrapError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	query := `DELETE FROM links WHERE folder_id = $1`

	res, err := r.db.ExecContext(ctx, query, folderID)
	if err != nil {
		return 0, dbx.WrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.WrapError(err)
	}
	return n, nil
}
