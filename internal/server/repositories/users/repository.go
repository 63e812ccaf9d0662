// Package users provides the PostgreSQL-backed user repository, including
// credential and reset-token columns.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

// Repository persists users. Lookups that match nothing return
// common.ErrorNotFound; unique violations on username or email return
// common.ErrDuplicateIdentity.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// IdentityTaken reports whether another user (not excludeID) already has
	// username or email. Empty arguments are not matched.
	IdentityTaken(ctx context.Context, username, email, excludeID string) (bool, error)

	UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ConsumeResetToken sets newHash on the user holding tokenHash with an
	// expiry after now and clears both token columns, in one statement.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string) (*models.User, error)
}
