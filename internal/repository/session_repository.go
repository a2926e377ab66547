package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository is keyed by session id throughout. Tokens carry the id
// in their sid claim, so no lookup ever runs against the token hash itself.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	// Rotate is the single conditional update that makes refresh rotation
	// safe under concurrency: the digest is replaced only if it still equals
	// oldHash. Zero matched rows means another request rotated (or revoked)
	// the session first, and the caller must treat the token as stale.
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time, userAgent, ip string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByIDForAccount(ctx context.Context, accountID uint, id string) (bool, error)
	DeleteByAccountID(ctx context.Context, accountID uint) (int64, error)
	DeleteOthersByAccountID(ctx context.Context, accountID uint, keepID string) (int64, error)
	ListByAccount(ctx context.Context, accountID uint, page PageRequest) (PageResult[domain.Session], error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find_by_id", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_id", "success")
	return &s, nil
}

func (r *GormSessionRepository) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time, userAgent, ip string) error {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND refresh_token_hash = ?", id, oldHash).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"expires_at":         expiresAt,
			"last_used_at":       time.Now().UTC(),
			"user_agent":         userAgent,
			"ip":                 ip,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "rotate", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "rotate", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate", "success")
	return nil
}

func (r *GormSessionRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_id", "success")
	return nil
}

// DeleteByIDForAccount refuses to touch a session owned by someone else; the
// ownership check is part of the WHERE clause, not a separate read.
func (r *GormSessionRepository) DeleteByIDForAccount(ctx context.Context, accountID uint, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND account_id = ?", id, accountID).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_account", "error")
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_account", "not_found")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_account", "success")
	return true, nil
}

func (r *GormSessionRepository) DeleteByAccountID(ctx context.Context, accountID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_account_id", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_account_id", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) DeleteOthersByAccountID(ctx context.Context, accountID uint, keepID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ? AND id <> ?", accountID, keepID).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_others_by_account_id", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_others_by_account_id", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) ListByAccount(ctx context.Context, accountID uint, page PageRequest) (PageResult[domain.Session], error) {
	req := normalizePageRequest(page)
	result := PageResult[domain.Session]{Page: req.Page, PageSize: req.PageSize}

	base := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("account_id = ? AND expires_at > ?", accountID, time.Now())
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_by_account", "error")
		return PageResult[domain.Session]{}, err
	}

	offset := (req.Page - 1) * req.PageSize
	err := base.Order("last_used_at DESC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_by_account", "error")
		return PageResult[domain.Session]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "session", "list_by_account", "success")
	return result, nil
}

func (r *GormSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "success")
	return res.RowsAffected, nil
}
