package domain

import "time"

// Session anchors one refresh-token lineage to an account. Only the HMAC
// digest of the current refresh token is ever stored; rotation swaps the
// digest in place, so at most one raw token is live per session.
type Session struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	AccountID        uint      `gorm:"index;not null" json:"account_id"`
	Realm            Realm     `gorm:"size:16;not null" json:"realm"`
	RefreshTokenHash string    `gorm:"size:128;not null" json:"-"`
	UserAgent        string    `gorm:"size:512" json:"user_agent"`
	IP               string    `gorm:"size:64" json:"ip"`
	LoginMethod      string    `gorm:"size:32" json:"login_method"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsedAt       time.Time `gorm:"index" json:"last_used_at"`
	ExpiresAt        time.Time `gorm:"index;not null" json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
