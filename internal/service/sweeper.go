package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/storelane/auth-engine/internal/repository"
)

// SessionSweeper periodically deletes expired session rows. Expired
// sessions are already unusable and invisible to listings; the sweeper just
// keeps the table from growing without bound.
type SessionSweeper struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewSessionSweeper(sessions repository.SessionRepository, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "session sweep failed", "error", err.Error())
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions swept", "count", n)
	}
}
