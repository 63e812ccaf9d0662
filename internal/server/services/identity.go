package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/dmitrijs2005/linkkeeper/internal/server/auth"
	"github.com/dmitrijs2005/linkkeeper/internal/server/config"
	"github.com/dmitrijs2005/linkkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/linkkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// IdentityService handles accounts and sessions:
//   - Register / Login: create users and mint session tokens
//   - VerifyToken: resolve a session token to a live user id
//   - GetProfile / UpdateProfile / ChangePassword: self-service
//   - ForgotPassword / ResetPassword: the emailed reset flow
type IdentityService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	credentials   *CredentialService
	publisher     mailer.Publisher
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	resetURLBase  string
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	creds *CredentialService, publisher mailer.Publisher, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:            db,
		repomanager:   m,
		credentials:   creds,
		publisher:     publisher,
		logger:        logger,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		resetURLBase:  strings.TrimRight(cfg.ResetURLBase, "/"),
	}
}

// Register creates a user and returns it with a session token. Username and
// email must both be unused.
func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	const op = "services.IdentityService.Register"

	username = normalizeUsername(username)
	email = normalizeEmail(email)

	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	repo := s.repomanager.Users(s.db)

	taken, err := repo.IdentityTaken(ctx, username, email, "")
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, "", common.ErrDuplicateIdentity
	}

	hash, err := credentials.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := repo.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, "", common.ErrDuplicateIdentity
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return user, token, nil
}

// Login checks email and password and returns a session token. Unknown email
// and wrong password are the same error.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "services.IdentityService.Login"

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, validationError("email and password", "are required")
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := credentials.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", nil, common.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn(ctx, "failed to record last login", "op", op, "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// VerifyToken returns the id of the user a session token belongs to. The
// user must still exist.
func (s *IdentityService) VerifyToken(ctx context.Context, token string) (string, error) {
	const op = "services.IdentityService.VerifyToken"

	if token == "" {
		return "", common.ErrUnauthenticated
	}

	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !isID(userID) {
		return "", common.ErrInvalidToken
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return userID, nil
}

func (s *IdentityService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, "services.IdentityService.GetProfile", userID)
}

// UpdateProfile changes username and/or email. Empty arguments keep the
// current value; a changed value must not belong to another user.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID, username, email string) (*models.User, error) {
	const op = "services.IdentityService.UpdateProfile"

	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	username = normalizeUsername(username)
	email = normalizeEmail(email)

	var checkUsername, checkEmail string
	if username != "" && username != user.Username {
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		checkUsername = username
	}
	if email != "" && email != user.Email {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		checkEmail = email
	}
	if checkUsername == "" && checkEmail == "" {
		return user, nil
	}

	repo := s.repomanager.Users(s.db)

	taken, err := repo.IdentityTaken(ctx, checkUsername, checkEmail, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, common.ErrDuplicateIdentity
	}

	if checkUsername != "" {
		user.Username = checkUsername
	}
	if checkEmail != "" {
		user.Email = checkEmail
	}

	updated, err := repo.UpdateProfile(ctx, user.ID, user.Username, user.Email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateIdentity):
			return nil, common.ErrDuplicateIdentity
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, current, next string) error {
	const op = "services.IdentityService.ChangePassword"

	if current == "" || next == "" {
		return validationError("current and new password", "are required")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return err
	}

	ok, err := credentials.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return common.ErrWrongCurrentPassword
	}

	return s.credentials.SetPassword(ctx, user.ID, next)
}

// ForgotPassword issues a reset token for the account registered with email
// and publishes the reset link. An unknown email is not an error, and
// neither is a failed publish: both are only logged.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) error {
	const op = "services.IdentityService.ForgotPassword"

	email = normalizeEmail(email)
	if email == "" {
		return validationError("email", "is required")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "password reset requested for unknown email", "op", op)
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, expires, err := s.credentials.IssueResetToken(ctx, user)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := mailer.Message{
		Email:     user.Email,
		Link:      s.ResetLink(raw),
		Purpose:   mailer.PurposePasswordReset,
		ExpiresAt: expires,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error(ctx, "failed to publish password reset message", "op", op, "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password using a raw token from a reset link.
func (s *IdentityService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	_, err := s.credentials.ConsumeResetToken(ctx, rawToken, newPassword)
	return err
}

// ResetLink is the public URL a reset email points to.
func (s *IdentityService) ResetLink(raw string) string {
	return s.resetURLBase + "/reset-password/" + raw
}

func (s *IdentityService) getUser(ctx context.Context, op, userID string) (*models.User, error) {
	if !isID(userID) {
		return nil, common.ErrUserNotFound
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *IdentityService) generateToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.tokenValidity)
}
