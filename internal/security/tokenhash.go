package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashRefreshToken computes the digest stored in a session row. HMAC-SHA256
// keyed with a server-side pepper: deterministic and cheap (this runs on
// every refresh), and useless to an attacker who dumps the sessions table
// without also obtaining the pepper. Deliberately not bcrypt.
func HashRefreshToken(raw, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
