package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/server/credentials"
	"github.com/google/uuid"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

func normalizeUsername(s string) string { return strings.TrimSpace(s) }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", common.ErrValidation, field, reason)
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return validationError("username", fmt.Sprintf("must be %d to %d characters", minUsernameLength, maxUsernameLength))
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return validationError("email", "is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < credentials.MinPasswordLength {
		return validationError("password", fmt.Sprintf("must be at least %d characters", credentials.MinPasswordLength))
	}
	if len(password) > credentials.MaxPasswordBytes {
		return validationError("password", fmt.Sprintf("must be at most %d bytes", credentials.MaxPasswordBytes))
	}
	return nil
}

// isID reports whether s can be a stored primary key. Anything else cannot
// match a row, so callers answer "not found" without asking storage.
func isID(s string) bool {
	return uuid.Validate(s) == nil
}
