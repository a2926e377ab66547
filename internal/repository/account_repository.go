package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/observability"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Account, error)
	FindByEmail(ctx context.Context, realm domain.Realm, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &GormAccountRepository{db: db} }

func (r *GormAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "account", "find_by_id", "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(ctx, "account", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", "find_by_id", "success")
	return &a, nil
}

// FindByEmail is scoped to a realm: the same address may exist independently
// as a customer and as an employee.
func (r *GormAccountRepository) FindByEmail(ctx context.Context, realm domain.Realm, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("realm = ? AND email = ?", realm, email).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "account", "find_by_email", "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(ctx, "account", "find_by_email", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", "find_by_email", "success")
	return &a, nil
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "account", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "account", "create", "success")
	return nil
}

func (r *GormAccountRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "update_password_hash", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "account", "update_password_hash", "not_found")
		return ErrAccountNotFound
	}
	observability.RecordRepositoryOperation(ctx, "account", "update_password_hash", "success")
	return nil
}
