package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/security"
)

func testJWTManager() *security.JWTManager {
	return security.NewJWTManager(
		"storelane-auth",
		[]byte("abcdefghijklmnopqrstuvwxyz123456"),
		[]byte("abcdefghijklmnopqrstuvwxyz654321"),
		15*time.Minute,
		24*time.Hour,
	)
}

func TestAuthMissingTokenReturnsUnauthorized(t *testing.T) {
	h := Auth(testJWTManager())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/customer/sessions", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestAuthValidBearerTokenExposesPrincipal(t *testing.T) {
	jwtMgr := testJWTManager()
	account := &domain.Account{ID: 42, Realm: domain.RealmEmployee, EmployeeRole: domain.EmployeeAdmin}
	token, err := jwtMgr.SignAccessToken(account)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var seen *Principal
	h := Auth(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/employee/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if seen == nil {
		t.Fatal("expected principal in request context")
	}
	if seen.AccountID != 42 || seen.Realm != domain.RealmEmployee || seen.EmployeeRole != domain.EmployeeAdmin {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

func TestAuthRejectsRefreshTokenAsBearer(t *testing.T) {
	jwtMgr := testJWTManager()
	account := &domain.Account{ID: 42, Realm: domain.RealmCustomer}
	refresh, err := jwtMgr.SignRefreshToken(account, "session-1")
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}

	h := Auth(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/customer/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token used as access token, got %d", rr.Code)
	}
}

func TestRequireRealmCrossRealmForbidden(t *testing.T) {
	jwtMgr := testJWTManager()
	account := &domain.Account{ID: 7, Realm: domain.RealmCustomer}
	token, err := jwtMgr.SignAccessToken(account)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	chain := Auth(jwtMgr)(RequireRealm(domain.RealmEmployee)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/employee/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-realm access, got %d", rr.Code)
	}
}

func TestRequireRealmMatchingRealmPasses(t *testing.T) {
	jwtMgr := testJWTManager()
	account := &domain.Account{ID: 7, Realm: domain.RealmCustomer}
	token, err := jwtMgr.SignAccessToken(account)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	chain := Auth(jwtMgr)(RequireRealm(domain.RealmCustomer)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/customer/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for matching realm, got %d", rr.Code)
	}
}
