package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/http/cookie"
	"github.com/storelane/auth-engine/internal/http/handler"
	"github.com/storelane/auth-engine/internal/http/router"
	"github.com/storelane/auth-engine/internal/repository"
	"github.com/storelane/auth-engine/internal/security"
	"github.com/storelane/auth-engine/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testEnv struct {
	BaseURL string
	Client  *http.Client
	DB      *gorm.DB
	JWT     *security.JWTManager
	Hasher  *security.PasswordHasher
}

const testPepper = "pepper-integration"

func newAuthTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Account{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	accounts := repository.NewAccountRepository(db)
	sessions := repository.NewSessionRepository(db)
	jwtMgr := security.NewJWTManager(
		"storelane-auth",
		[]byte("access-secret-abcdefghijklmnopqr"),
		[]byte("refresh-secret-abcdefghijklmnopq"),
		15*time.Minute,
		24*time.Hour,
	)
	hasher := security.NewPasswordHasher(4)
	authService := service.NewAuthService(accounts, sessions, jwtMgr, hasher, testPepper)
	sessionService := service.NewSessionService(sessions)
	cookies := cookie.NewManager(false, http.SameSiteLaxMode, 24*time.Hour)

	h := router.New(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, cookies, 15*time.Minute),
		SessionHandler:   handler.NewSessionHandler(sessionService),
		JWTManager:       jwtMgr,
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testEnv{
		BaseURL: srv.URL,
		Client:  &http.Client{Jar: jar},
		DB:      db,
		JWT:     jwtMgr,
		Hasher:  hasher,
	}
}

func (e *testEnv) seedAccount(t *testing.T, realm domain.Realm, email, password string) *domain.Account {
	t.Helper()
	hash, err := e.Hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := &domain.Account{Email: email, Realm: realm, PasswordHash: &hash, Status: domain.AccountActive}
	if realm == domain.RealmEmployee {
		account.EmployeeRole = domain.EmployeeStaff
	}
	if err := e.DB.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func accessTokenFrom(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode token payload: %v", err)
	}
	if data.AccessToken == "" {
		t.Fatal("response carried no access token")
	}
	return data.AccessToken
}

func jsonDecode(resp *http.Response, dst any) error {
	return json.NewDecoder(resp.Body).Decode(dst)
}

type sessionPage struct {
	Items []struct {
		ID          string `json:"id"`
		UserAgent   string `json:"user_agent"`
		IP          string `json:"ip"`
		LoginMethod string `json:"login_method"`
	} `json:"items"`
	Total int64 `json:"total"`
}

func sessionsFrom(t *testing.T, env envelope) sessionPage {
	t.Helper()
	var page sessionPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode session page: %v", err)
	}
	return page
}

func sessionCount(t *testing.T, env envelope) int {
	t.Helper()
	return len(sessionsFrom(t, env).Items)
}

func cookieValue(t *testing.T, client *http.Client, baseURL, path, name string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for _, c := range client.Jar.Cookies(req.URL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
