// Package cookie carries refresh tokens between the auth endpoints and the
// browser. Each realm gets its own cookie name and path so a customer
// cookie is never even transmitted to the employee endpoints.
package cookie

import (
	"net/http"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
)

const (
	customerCookieName = "customerRefreshToken"
	employeeCookieName = "employeeRefreshToken"

	customerCookiePath = "/auth/customer"
	employeeCookiePath = "/auth/employee"
)

type Manager struct {
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

func NewManager(secure bool, sameSite http.SameSite, maxAge time.Duration) *Manager {
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &Manager{secure: secure, sameSite: sameSite, maxAge: maxAge}
}

// Name returns the realm's refresh cookie name.
func Name(realm domain.Realm) string {
	if realm == domain.RealmEmployee {
		return employeeCookieName
	}
	return customerCookieName
}

// Path returns the path prefix the realm's refresh cookie is scoped to.
// The session listing endpoints live outside this prefix, so browsers never
// send refresh tokens to them.
func Path(realm domain.Realm) string {
	if realm == domain.RealmEmployee {
		return employeeCookiePath
	}
	return customerCookiePath
}

func (m *Manager) Set(w http.ResponseWriter, realm domain.Realm, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name(realm),
		Value:    token,
		Path:     Path(realm),
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	})
}

// Clear expires the realm's refresh cookie. Attributes must match Set's or
// browsers treat it as a different cookie and keep the original.
func (m *Manager) Clear(w http.ResponseWriter, realm domain.Realm) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name(realm),
		Value:    "",
		Path:     Path(realm),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	})
}

// Read returns the realm's refresh token, or "" when the cookie is absent.
func Read(r *http.Request, realm domain.Realm) string {
	c, err := r.Cookie(Name(realm))
	if err != nil {
		return ""
	}
	return c.Value
}
