// Package common defines shared constants and sentinel errors used across
// LinkKeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Storage could not be reached or did not answer in time.
	ErrServiceUnavailable = errors.New("service unavailable")

	// Validation errors. Wrapped with the offending field by the caller.
	ErrValidation = errors.New("validation error")

	// Identity errors.
	ErrDuplicateIdentity     = errors.New("username or email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrWrongCurrentPassword  = errors.New("current password is incorrect")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")

	// Gate errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrUserNotFound    = errors.New("user not found")

	// Folder and link ownership errors.
	ErrDuplicateName       = errors.New("folder with this name already exists")
	ErrNotFoundOrForbidden = errors.New("folder not found or access denied")
	ErrLinkNotFound        = errors.New("link not found")
	ErrForbidden           = errors.New("forbidden")
)
