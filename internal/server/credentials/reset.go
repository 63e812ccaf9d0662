package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
)

// ResetTokenBytes is the entropy of a reset token before hex encoding.
const ResetTokenBytes = 20

// ResetToken is a freshly minted reset token. Raw goes to the user, only
// Hash and ExpiresAt are stored.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// NewResetToken mints a token valid until now+ttl.
func NewResetToken(now time.Time, ttl time.Duration) (*ResetToken, error) {
	raw, err := common.MakeRandHexString(ResetTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	return &ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashResetToken is the one-way transform applied to raw tokens before
// they are stored or looked up.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
