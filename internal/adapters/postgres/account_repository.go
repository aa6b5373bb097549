package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	rec, logins, err := toAccountModel(account)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		if len(logins) > 0 {
			if err := tx.Create(&logins).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

// Update rewrites the given aggregates in one transaction. The full row is
// replaced, including NULLing the password-variant columns when an account
// has moved to the wallet variant, so an upgrade is a single-row change.
func (r *accountRepository) Update(ctx context.Context, accounts ...*domain.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, account := range accounts {
			rec, logins, err := toAccountModel(account)
			if err != nil {
				return err
			}
			res := tx.Model(&accountModel{}).
				Where("account_id = ?", rec.AccountID).
				Select("*").
				Omit("account_id", "created_at").
				Updates(&rec)
			if res.Error != nil {
				if isUniqueViolation(res.Error) {
					return domain.ErrConflict
				}
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrNotFound
			}

			if err := tx.Where("account_id = ?", rec.AccountID).Delete(&accountLoginModel{}).Error; err != nil {
				return err
			}
			if len(logins) > 0 {
				if err := tx.Create(&logins).Error; err != nil {
					if isUniqueViolation(err) {
						return domain.ErrConflict
					}
					return err
				}
			}
		}
		return nil
	})
}

func (r *accountRepository) Delete(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", account.ID).Delete(&accountLoginModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("account_id = ?", account.ID).Delete(&accountModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.getOne(ctx, "account_id = ?", id)
}

func (r *accountRepository) GetByNormalizedUsername(ctx context.Context, normalized string) (*domain.Account, error) {
	return r.getOne(ctx, "normalized_username = ?", normalized)
}

func (r *accountRepository) GetByNormalizedEmail(ctx context.Context, normalized string) (*domain.Account, error) {
	return r.getOne(ctx, "normalized_email = ?", normalized)
}

func (r *accountRepository) GetByEtherAddress(ctx context.Context, checksumAddress string) (*domain.Account, error) {
	return r.getOne(ctx, "ether_address = ?", checksumAddress)
}

func (r *accountRepository) GetByEtherLoginAddress(ctx context.Context, checksumAddress string) (*domain.Account, error) {
	return r.getOne(ctx, "ether_login_address = ?", checksumAddress)
}

func (r *accountRepository) GetByLogin(ctx context.Context, provider, providerKey string) (*domain.Account, error) {
	var login accountLoginModel
	if err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Where("provider_key = ?", providerKey).
		Take(&login).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.getOne(ctx, "account_id = ?", login.AccountID)
}

func (r *accountRepository) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", id).
		Update("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var logins []accountLoginModel
	if rec.Kind == string(domain.KindPassword) {
		if err := r.db.WithContext(ctx).
			Where("account_id = ?", rec.AccountID).
			Order("id ASC").
			Find(&logins).Error; err != nil {
			return nil, err
		}
	}
	return toDomainAccount(rec, logins)
}
