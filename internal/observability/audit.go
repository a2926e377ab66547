package observability

import (
	"context"
	"log/slog"
)

// Audit emits one structured audit record for an auth lifecycle event.
// Fire-and-forget: it can only ever log, so a broken log pipeline never
// fails the authentication operation that triggered it.
func Audit(ctx context.Context, action string, accountID uint, ip, userAgent string, attrs ...any) {
	base := []any{
		"action", action,
		"account_id", accountID,
		"ip", ip,
		"user_agent", userAgent,
	}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}
