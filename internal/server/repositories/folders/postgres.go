package folders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

const folderColumns = `id, user_id, name, description, created_at, updated_at`

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

func scanFolder(row rowScanner) (*models.Folder, error) {
	var f models.Folder
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// mapError turns "no row" into ErrorNotFound and a (user_id, name) clash
// into ErrDuplicateName.
func mapError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case dbx.IsUniqueViolation(err):
		return common.ErrDuplicateName
	default:
		return dbx.WrapError(err)
	}
}

// ListByUser returns the user's folders oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dbx.WrapError(err)
	}
	defer rows.Close()

	result := make([]*models.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, dbx.WrapError(err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapError(err)
	}
	return result, nil
}

// GetOwned returns the folder only if userID owns it.
func (r *PostgresRepository) GetOwned(ctx context.Context, userID, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND user_id = $2`

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// GetByID returns the folder regardless of owner. Used to walk from a link
// to the user that controls it.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// NameTaken reports whether userID already has a folder called name other
// than excludeID. The comparison is exact and case-sensitive.
func (r *PostgresRepository) NameTaken(ctx context.Context, userID, name, excludeID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM folders
		   WHERE user_id = $1 AND name = $2 AND ($3::uuid IS NULL OR id <> $3::uuid)
		 )`

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, userID, name, nullableID(excludeID)).Scan(&taken); err != nil {
		return false, dbx.WrapError(err)
	}
	return taken, nil
}

// Create inserts folder with the id chosen by the caller.
func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	query :=
		`INSERT INTO folders (id, user_id, name, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, folder.ID, folder.UserID, folder.Name, folder.Description).
		Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return folder, nil
}

// Update writes name and description of a folder owned by folder.UserID.
func (r *PostgresRepository) Update(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	query :=
		`UPDATE folders SET name = $3, description = $4, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING ` + folderColumns

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, folder.ID, folder.UserID, folder.Name, folder.Description))
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// Delete removes a folder owned by userID.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM folders WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
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

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
