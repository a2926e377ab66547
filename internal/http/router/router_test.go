package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/security"
)

func newRouterTestDeps() Dependencies {
	return Dependencies{
		AuthHandler:    nil,
		SessionHandler: nil,
		JWTManager: security.NewJWTManager(
			"storelane-auth",
			[]byte("abcdefghijklmnopqrstuvwxyz123456"),
			[]byte("abcdefghijklmnopqrstuvwxyz654321"),
			15*time.Minute,
			24*time.Hour,
		),
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		EnableOTelHTTP:   false,
	}
}

func perform(r http.Handler, method, target string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "10.10.10.10:1234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthLive(t *testing.T) {
	r := New(newRouterTestDeps())

	rr := perform(r, http.MethodGet, "/health/live", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected live payload, got %s", rr.Body.String())
	}
}

func TestRouterHealthReadyBranches(t *testing.T) {
	t.Run("nil check returns ready", func(t *testing.T) {
		r := New(newRouterTestDeps())
		rr := perform(r, http.MethodGet, "/health/ready", nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		dep := newRouterTestDeps()
		dep.ReadinessCheck = func(context.Context) error { return errors.New("db down") }
		r := New(dep)
		rr := perform(r, http.MethodGet, "/health/ready", nil, "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"code":"DEPENDENCY_UNREADY"`) {
			t.Fatalf("expected DEPENDENCY_UNREADY envelope, got %s", rr.Body.String())
		}
	})
}

func TestRouterSessionRoutesRequireAuth(t *testing.T) {
	r := New(newRouterTestDeps())

	for _, target := range []string{"/customer/sessions", "/employee/sessions"} {
		rr := perform(r, http.MethodGet, target, nil, "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", target, rr.Code)
		}
	}
}

func TestRouterSessionRoutesEnforceRealm(t *testing.T) {
	dep := newRouterTestDeps()
	r := New(dep)

	customer := &domain.Account{ID: 7, Realm: domain.RealmCustomer}
	token, err := dep.JWTManager.SignAccessToken(customer)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	rr := perform(r, http.MethodGet, "/employee/sessions", map[string]string{
		"Authorization": "Bearer " + token,
	}, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer token on employee route, got %d", rr.Code)
	}
}

func TestRouterEmployeeHasNoRegisterRoute(t *testing.T) {
	r := New(newRouterTestDeps())

	rr := perform(r, http.MethodPost, "/auth/employee/register", nil, `{"email":"a@x.com","password":"Secret123!"}`)
	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected employee register to be unrouted, got %d", rr.Code)
	}
}

func TestRouterFallbackAPIRateLimiter(t *testing.T) {
	dep := newRouterTestDeps()
	dep.APIRateLimitRPM = 1
	r := New(dep)

	first := perform(r, http.MethodGet, "/health/live", nil, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.Code)
	}
	second := perform(r, http.MethodGet, "/health/live", nil, "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("429 must carry Retry-After")
	}
}
