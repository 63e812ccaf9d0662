// Package services contains the server-side business logic: identity and
// credentials, folders and links. Services own no SQL; they take repositories
// from a repomanager bound either to the pool or to a transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/server/config"
	"github.com/dmitrijs2005/linkkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/repomanager"
)

// CredentialService writes password hashes and password-reset tokens.
// Raw passwords and raw reset tokens never reach storage.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	resetTTL    time.Duration
	now         func() time.Time
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		resetTTL:    cfg.ResetTokenValidityDuration,
		now:         time.Now,
	}
}

// SetPassword hashes plain and stores it for userID. It always re-hashes,
// so calling it twice with the same password yields two different digests.
func (s *CredentialService) SetPassword(ctx context.Context, userID, plain string) error {
	const op = "services.CredentialService.SetPassword"

	if err := validatePassword(plain); err != nil {
		return err
	}
	hash, err := credentials.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repomanager.Users(s.db).SetPasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IssueResetToken stores the digest and expiry of a fresh reset token on the
// user and returns the raw token together with its expiry. A later call
// replaces the earlier token.
func (s *CredentialService) IssueResetToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	const op = "services.CredentialService.IssueResetToken"

	token, err := credentials.NewResetToken(s.now(), s.resetTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repomanager.Users(s.db).SetResetToken(ctx, user.ID, token.Hash, token.ExpiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	expires := token.ExpiresAt
	user.PasswordResetToken = &token.Hash
	user.PasswordResetExpires = &expires
	return token.Raw, token.ExpiresAt, nil
}

// ConsumeResetToken sets newPassword on the user holding an unexpired token
// whose digest matches raw and clears the token, so it works once. Unknown
// and expired tokens both yield common.ErrInvalidOrExpiredToken.
func (s *CredentialService) ConsumeResetToken(ctx context.Context, raw, newPassword string) (*models.User, error) {
	const op = "services.CredentialService.ConsumeResetToken"

	if raw == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := credentials.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repomanager.Users(s.db).ConsumeResetToken(ctx, credentials.HashResetToken(raw), s.now(), hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
