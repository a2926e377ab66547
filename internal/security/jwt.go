package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storelane/auth-engine/internal/domain"
)

// Token verification failures are collapsed to a generic 401 at the HTTP
// layer; the distinct sentinels exist for logs and audit records.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

type Claims struct {
	TokenType    string              `json:"token_type"`
	Realm        domain.Realm        `json:"realm"`
	EmployeeRole domain.EmployeeRole `json:"employee_role,omitempty"`
	SessionID    string              `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) AccountID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return uint(id), nil
}

// JWTManager signs and verifies both token kinds. The two secrets are
// independent; an access token can never pass refresh verification and vice
// versa, both by secret and by the token_type claim.
type JWTManager struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTManager(issuer string, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		issuer:        issuer,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *JWTManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *JWTManager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *JWTManager) SignAccessToken(account *domain.Account) (string, error) {
	claims := Claims{
		TokenType:        "access",
		Realm:            account.Realm,
		EmployeeRole:     account.EmployeeRole,
		RegisteredClaims: m.registered(account.ID, m.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// SignRefreshToken embeds the owning session id so refresh can locate the
// session record without a secondary index on the token hash.
func (m *JWTManager) SignRefreshToken(account *domain.Account, sessionID string) (string, error) {
	claims := Claims{
		TokenType:        "refresh",
		Realm:            account.Realm,
		EmployeeRole:     account.EmployeeRole,
		SessionID:        sessionID,
		RegisteredClaims: m.registered(account.ID, m.refreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	return m.parse(raw, m.accessSecret, "access")
}

func (m *JWTManager) ParseRefreshToken(raw string) (*Claims, error) {
	return m.parse(raw, m.refreshSecret, "refresh")
}

func (m *JWTManager) registered(accountID uint, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   strconv.FormatUint(uint64(accountID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (m *JWTManager) parse(raw string, secret []byte, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: unexpected signing algorithm", ErrTokenInvalid)
		}
		return secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrTokenInvalid, claims.TokenType)
	}
	if !claims.Realm.Valid() {
		return nil, fmt.Errorf("%w: unknown realm %q", ErrTokenInvalid, claims.Realm)
	}
	return claims, nil
}
