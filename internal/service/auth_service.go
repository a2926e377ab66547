package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/observability"
	"github.com/storelane/auth-engine/internal/repository"
	"github.com/storelane/auth-engine/internal/security"
)

// AuthService owns the login/refresh/logout protocol. All state lives in the
// account and session rows; any number of requests may run concurrently and
// the only cross-request coordination point is the conditional rotate in the
// session repository.
type AuthService struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	jwt      *security.JWTManager
	hasher   *security.PasswordHasher
	pepper   string
}

func NewAuthService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	jwt *security.JWTManager,
	hasher *security.PasswordHasher,
	pepper string,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		jwt:      jwt,
		hasher:   hasher,
		pepper:   pepper,
	}
}

// Register provisions a customer account. Employee accounts are created by
// back-office administration, never through self-service.
func (s *AuthService) Register(ctx context.Context, realm domain.Realm, email, password string, client ClientInfo) (*LoginResult, error) {
	if realm != domain.RealmCustomer {
		return nil, ErrForbidden
	}
	if _, err := s.accounts.FindByEmail(ctx, realm, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{
		Email:        email,
		Realm:        realm,
		PasswordHash: &hash,
		Status:       domain.AccountActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, account, client, "register")
	if err != nil {
		return nil, err
	}
	observability.Audit(ctx, "register", account.ID, client.IP, client.UserAgent, "realm", string(realm))
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, realm domain.Realm, email, password string, client ClientInfo) (*LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, realm, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Unknown address and wrong password are indistinguishable to
			// the client; only the audit trail keeps the real reason.
			s.denyLogin(ctx, realm, 0, client, "unknown_account")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		s.denyLogin(ctx, realm, account.ID, client, "bad_password")
		return nil, ErrInvalidCredentials
	}
	if account.Status == domain.AccountBlocked {
		s.denyLogin(ctx, realm, account.ID, client, "blocked")
		return nil, ErrAccountBlocked
	}

	result, err := s.issueSession(ctx, account, client, "password")
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, string(realm), "success")
	observability.Audit(ctx, "login", account.ID, client.IP, client.UserAgent,
		"realm", string(realm), "session_id", result.SessionID)
	return result, nil
}

// Refresh validates the presented token against the stored digest and
// rotates it. A digest mismatch means the token is not the current live one
// for its session (already rotated away, or forged); the whole session is
// burned so the holder of the stolen token cannot keep it alive.
func (s *AuthService) Refresh(ctx context.Context, realm domain.Realm, rawRefresh string, client ClientInfo) (*LoginResult, error) {
	if rawRefresh == "" {
		observability.RecordAuthRefresh(ctx, string(realm), "missing_token")
		return nil, ErrMissingToken
	}
	claims, err := s.jwt.ParseRefreshToken(rawRefresh)
	if err != nil {
		observability.RecordAuthRefresh(ctx, string(realm), "invalid_token")
		slog.DebugContext(ctx, "refresh token rejected", "realm", realm, "reason", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Realm != realm {
		// A token minted for the other identity domain never rotates here,
		// even if its signature is good.
		observability.RecordAuthRefresh(ctx, string(realm), "realm_mismatch")
		return nil, ErrInvalidToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		observability.RecordAuthRefresh(ctx, string(realm), "invalid_token")
		return nil, ErrInvalidToken
	}

	sess, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordAuthRefresh(ctx, string(realm), "session_not_found")
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.Expired(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, sess.ID)
		observability.RecordAuthRefresh(ctx, string(realm), "session_expired")
		return nil, ErrSessionNotFound
	}
	if sess.AccountID != accountID || sess.Realm != realm {
		observability.RecordAuthRefresh(ctx, string(realm), "invalid_token")
		return nil, ErrInvalidToken
	}

	presented := security.HashRefreshToken(rawRefresh, s.pepper)
	if presented != sess.RefreshTokenHash {
		_ = s.sessions.DeleteByID(ctx, sess.ID)
		observability.RecordAuthRefresh(ctx, string(realm), "reuse_detected")
		observability.Audit(ctx, "refresh_reuse_detected", accountID, client.IP, client.UserAgent,
			"realm", string(realm), "session_id", sess.ID)
		return nil, ErrSessionInvalidated
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			_ = s.sessions.DeleteByID(ctx, sess.ID)
			observability.RecordAuthRefresh(ctx, string(realm), "account_gone")
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if account.Status == domain.AccountBlocked {
		_ = s.sessions.DeleteByID(ctx, sess.ID)
		observability.RecordAuthRefresh(ctx, string(realm), "blocked")
		return nil, ErrAccountBlocked
	}

	access, err := s.jwt.SignAccessToken(account)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.SignRefreshToken(account, sess.ID)
	if err != nil {
		return nil, err
	}
	newHash := security.HashRefreshToken(refresh, s.pepper)
	expiresAt := time.Now().Add(s.jwt.RefreshTTL()).UTC()

	err = s.sessions.Rotate(ctx, sess.ID, presented, newHash, expiresAt, client.UserAgent, client.IP)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// A concurrent refresh won the conditional update; this request's
			// token is now stale, which is indistinguishable from replay.
			_ = s.sessions.DeleteByID(ctx, sess.ID)
			observability.RecordAuthRefresh(ctx, string(realm), "rotation_race")
			observability.Audit(ctx, "refresh_reuse_detected", accountID, client.IP, client.UserAgent,
				"realm", string(realm), "session_id", sess.ID)
			return nil, ErrSessionInvalidated
		}
		return nil, err
	}

	observability.RecordAuthRefresh(ctx, string(realm), "success")
	observability.Audit(ctx, "refresh", accountID, client.IP, client.UserAgent,
		"realm", string(realm), "session_id", sess.ID)
	return &LoginResult{
		Account:      account,
		SessionID:    sess.ID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Logout is best effort. The client's intent is unambiguous, so a token that
// no longer verifies still logs out successfully; there is just no session
// left to delete.
func (s *AuthService) Logout(ctx context.Context, realm domain.Realm, rawRefresh string, client ClientInfo) error {
	if rawRefresh == "" {
		observability.RecordAuthLogout(ctx, string(realm), "no_token")
		return nil
	}
	claims, err := s.jwt.ParseRefreshToken(rawRefresh)
	if err != nil || claims.Realm != realm {
		observability.RecordAuthLogout(ctx, string(realm), "unverified")
		return nil
	}
	if err := s.sessions.DeleteByID(ctx, claims.SessionID); err != nil {
		return err
	}
	accountID, _ := claims.AccountID()
	observability.RecordAuthLogout(ctx, string(realm), "success")
	observability.Audit(ctx, "logout", accountID, client.IP, client.UserAgent,
		"realm", string(realm), "session_id", claims.SessionID)
	return nil
}

// ChangePassword re-hashes the credential and revokes every other session.
// The current session survives when the caller's refresh cookie identifies
// it; otherwise all sessions go and every device re-authenticates.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uint, current, next, rawRefresh string, client ClientInfo) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}

	keepID := ""
	if claims, err := s.jwt.ParseRefreshToken(rawRefresh); err == nil && claims.Realm == account.Realm {
		if aid, err := claims.AccountID(); err == nil && aid == accountID {
			keepID = claims.SessionID
		}
	}
	if keepID != "" {
		if _, err := s.sessions.DeleteOthersByAccountID(ctx, accountID, keepID); err != nil {
			return err
		}
	} else {
		if _, err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
			return err
		}
	}
	observability.Audit(ctx, "password_change", accountID, client.IP, client.UserAgent,
		"realm", string(account.Realm), "kept_session", keepID != "")
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, account *domain.Account, client ClientInfo, method string) (*LoginResult, error) {
	// The session id is generated before signing, so the refresh token is
	// signed exactly once with its final sid claim.
	sessionID := uuid.NewString()
	access, err := s.jwt.SignAccessToken(account)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.SignRefreshToken(account, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               sessionID,
		AccountID:        account.ID,
		Realm:            account.Realm,
		RefreshTokenHash: security.HashRefreshToken(refresh, s.pepper),
		UserAgent:        client.UserAgent,
		IP:               client.IP,
		LoginMethod:      method,
		LastUsedAt:       now,
		ExpiresAt:        now.Add(s.jwt.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &LoginResult{
		Account:      account,
		SessionID:    sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *AuthService) denyLogin(ctx context.Context, realm domain.Realm, accountID uint, client ClientInfo, reason string) {
	observability.RecordAuthLogin(ctx, string(realm), reason)
	observability.Audit(ctx, "login_denied", accountID, client.IP, client.UserAgent,
		"realm", string(realm), "reason", reason)
}
