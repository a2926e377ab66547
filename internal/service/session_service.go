package service

import (
	"context"
	"time"

	"github.com/storelane/auth-engine/internal/observability"
	"github.com/storelane/auth-engine/internal/repository"
)

// SessionView is what session management endpoints expose: metadata and
// timestamps only, never the token digest.
type SessionView struct {
	ID          string    `json:"id"`
	UserAgent   string    `json:"user_agent"`
	IP          string    `json:"ip"`
	LoginMethod string    `json:"login_method"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SessionService struct {
	sessions repository.SessionRepository
}

func NewSessionService(sessions repository.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions}
}

func (s *SessionService) List(ctx context.Context, accountID uint, page repository.PageRequest) (repository.PageResult[SessionView], error) {
	result, err := s.sessions.ListByAccount(ctx, accountID, page)
	if err != nil {
		return repository.PageResult[SessionView]{}, err
	}
	views := repository.PageResult[SessionView]{
		Items:      make([]SessionView, 0, len(result.Items)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
	for _, sess := range result.Items {
		views.Items = append(views.Items, SessionView{
			ID:          sess.ID,
			UserAgent:   sess.UserAgent,
			IP:          sess.IP,
			LoginMethod: sess.LoginMethod,
			CreatedAt:   sess.CreatedAt,
			LastUsedAt:  sess.LastUsedAt,
			ExpiresAt:   sess.ExpiresAt,
		})
	}
	return views, nil
}

// Revoke deletes one session scoped to its owner. A session id belonging to
// another account is reported as not found, not as forbidden, so the
// endpoint leaks nothing about other accounts' session ids.
func (s *SessionService) Revoke(ctx context.Context, accountID uint, sessionID string, client ClientInfo) error {
	deleted, err := s.sessions.DeleteByIDForAccount(ctx, accountID, sessionID)
	if err != nil {
		observability.RecordSessionRevocation(ctx, "revoke", "error")
		return err
	}
	if !deleted {
		observability.RecordSessionRevocation(ctx, "revoke", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordSessionRevocation(ctx, "revoke", "success")
	observability.Audit(ctx, "session_revoked", accountID, client.IP, client.UserAgent, "session_id", sessionID)
	return nil
}

// RevokeAll backs "log out everywhere" and forced password resets.
func (s *SessionService) RevokeAll(ctx context.Context, accountID uint, client ClientInfo) (int64, error) {
	n, err := s.sessions.DeleteByAccountID(ctx, accountID)
	if err != nil {
		observability.RecordSessionRevocation(ctx, "revoke_all", "error")
		return 0, err
	}
	observability.RecordSessionRevocation(ctx, "revoke_all", "success")
	observability.Audit(ctx, "session_revoked_all", accountID, client.IP, client.UserAgent, "count", n)
	return n, nil
}
