package service

import (
	"context"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/repository"
)

// ClientInfo is the request metadata recorded on a session at login and
// replaced on every successful refresh.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// LoginResult carries the freshly minted pair. The access token goes to the
// response body; the refresh token goes only to the realm-scoped cookie.
type LoginResult struct {
	Account      *domain.Account
	SessionID    string
	AccessToken  string
	RefreshToken string
}

type Authenticator interface {
	Register(ctx context.Context, realm domain.Realm, email, password string, client ClientInfo) (*LoginResult, error)
	Login(ctx context.Context, realm domain.Realm, email, password string, client ClientInfo) (*LoginResult, error)
	Refresh(ctx context.Context, realm domain.Realm, rawRefresh string, client ClientInfo) (*LoginResult, error)
	Logout(ctx context.Context, realm domain.Realm, rawRefresh string, client ClientInfo) error
	ChangePassword(ctx context.Context, accountID uint, current, next, rawRefresh string, client ClientInfo) error
}

type SessionManager interface {
	List(ctx context.Context, accountID uint, page repository.PageRequest) (repository.PageResult[SessionView], error)
	Revoke(ctx context.Context, accountID uint, sessionID string, client ClientInfo) error
	RevokeAll(ctx context.Context, accountID uint, client ClientInfo) (int64, error)
}
