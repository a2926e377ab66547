package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/http/response"
	"github.com/storelane/auth-engine/internal/observability"
	"github.com/storelane/auth-engine/internal/security"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated caller derived from a verified access
// token. Handlers read it from the request context.
type Principal struct {
	AccountID    uint
	Realm        domain.Realm
	EmployeeRole domain.EmployeeRole
}

// Auth verifies the Bearer access token and stores the Principal in the
// request context. Refresh tokens never pass this check: they are signed
// with a different secret and carry a different token_type claim.
func Auth(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			accountID, err := claims.AccountID()
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid")
			principal := &Principal{
				AccountID:    accountID,
				Realm:        claims.Realm,
				EmployeeRole: claims.EmployeeRole,
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRealm rejects callers authenticated in a different realm. A valid
// customer token presented to an employee endpoint is authentication
// without authorization, so the answer is 403, not 401.
func RequireRealm(realm domain.Realm) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			if principal.Realm != realm {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
