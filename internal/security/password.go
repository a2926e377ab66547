package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt with a tunable cost. Hashing is invoked
// explicitly by the service layer before persistence; nothing hashes as a
// side effect of saving an account.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. A nil or empty stored digest
// verifies as false rather than erroring, so accounts provisioned through
// external identity providers simply cannot log in with a password.
func (h *PasswordHasher) Verify(plain string, digest *string) bool {
	if digest == nil || *digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*digest), []byte(plain)) == nil
}
