package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

const userColumns = `id, username, email, password_hash, password_reset_token, password_reset_expires, created_at, last_login`

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

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		token     sql.NullString
		expires   sql.NullTime
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &token, &expires, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if token.Valid {
		u.PasswordResetToken = &token.String
	}
	if expires.Valid {
		u.PasswordResetExpires = &expires.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case dbx.IsUniqueViolation(err):
		return common.ErrDuplicateIdentity
	default:
		return dbx.WrapError(err)
	}
}

// Create inserts user with the id chosen by the caller and fills CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) IdentityTaken(ctx context.Context, username, email, excludeID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM users
		   WHERE ((username = $1 AND $1 <> '') OR (email = $2 AND $2 <> ''))
		     AND ($3::uuid IS NULL OR id <> $3::uuid)
		 )`

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, username, email, nullableID(excludeID)).Scan(&taken); err != nil {
		return false, dbx.WrapError(err)
	}
	return taken, nil
}

// UpdateProfile overwrites username and email and returns the stored row.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error) {
	query :=
		`UPDATE users SET username = $2, email = $3
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, username, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, hash)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query :=
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3
		 WHERE id = $1`
	return r.execOne(ctx, query, id, tokenHash, expires)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string) (*models.User, error) {
	query :=
		`UPDATE users
		 SET password_hash = $3, password_reset_token = NULL, password_reset_expires = NULL
		 WHERE password_reset_token = $1 AND password_reset_expires > $2
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, tokenHash, now, newHash))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
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
