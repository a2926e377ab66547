package security

import (
	"errors"
	"testing"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
)

func newTestManager(accessTTL, refreshTTL time.Duration) *JWTManager {
	return NewJWTManager(
		"storelane-auth",
		[]byte("access-secret-abcdefghijklmnopqr"),
		[]byte("refresh-secret-abcdefghijklmnopq"),
		accessTTL,
		refreshTTL,
	)
}

func employeeAccount() *domain.Account {
	return &domain.Account{
		ID:           7,
		Email:        "staff@storelane.test",
		Realm:        domain.RealmEmployee,
		EmployeeRole: domain.EmployeeStaff,
		Status:       domain.AccountActive,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(15*time.Minute, 24*time.Hour)
	raw, err := m.SignAccessToken(employeeAccount())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Realm != domain.RealmEmployee || claims.EmployeeRole != domain.EmployeeStaff {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	id, err := claims.AccountID()
	if err != nil || id != 7 {
		t.Fatalf("account id = %d, err = %v", id, err)
	}
	if claims.SessionID != "" {
		t.Fatal("access token must not carry a session id")
	}
}

func TestRefreshTokenCarriesSessionID(t *testing.T) {
	m := newTestManager(15*time.Minute, 24*time.Hour)
	raw, err := m.SignRefreshToken(employeeAccount(), "sess-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.ParseRefreshToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SessionID != "sess-123" {
		t.Fatalf("sid = %q, want sess-123", claims.SessionID)
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	m := newTestManager(15*time.Minute, 24*time.Hour)
	access, err := m.SignAccessToken(employeeAccount())
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	refresh, err := m.SignRefreshToken(employeeAccount(), "sess-1")
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	if _, err := m.ParseRefreshToken(access); err == nil {
		t.Fatal("access token must not verify as refresh token")
	}
	if _, err := m.ParseAccessToken(refresh); err == nil {
		t.Fatal("refresh token must not verify as access token")
	}
}

func TestParseDistinguishesFailureKinds(t *testing.T) {
	m := newTestManager(-time.Minute, -time.Minute)
	expired, err := m.SignAccessToken(employeeAccount())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccessToken(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := m.ParseAccessToken("not-a-jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}

	other := NewJWTManager("storelane-auth", []byte("other-secret-aaaaaaaaaaaaaaaaaaaa"), []byte("other-secret-bbbbbbbbbbbbbbbbbbbb"), time.Minute, time.Hour)
	forged, err := other.SignAccessToken(employeeAccount())
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := m.ParseAccessToken(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong signature, got %v", err)
	}
}
