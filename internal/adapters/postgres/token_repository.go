package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/etherna/sso/internal/domain"
	"gorm.io/gorm"
)

type tokenRepository struct {
	db *gorm.DB
}

// Create relies on the unique index over ether_address to arbitrate
// concurrent challenge issues: the loser gets domain.ErrConflict and must
// fetch the winner's token.
func (r *tokenRepository) Create(ctx context.Context, token *domain.Web3LoginToken) error {
	rec := web3LoginTokenModel{
		TokenID:      token.ID,
		EtherAddress: token.EtherAddress,
		Code:         token.Code,
		CreatedAt:    token.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *tokenRepository) GetByAddress(ctx context.Context, checksumAddress string) (*domain.Web3LoginToken, error) {
	var rec web3LoginTokenModel
	if err := r.db.WithContext(ctx).
		Where("ether_address = ?", checksumAddress).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomainWeb3LoginToken(rec), nil
}

func (r *tokenRepository) DeleteByAddress(ctx context.Context, checksumAddress string) error {
	return r.db.WithContext(ctx).
		Where("ether_address = ?", checksumAddress).
		Delete(&web3LoginTokenModel{}).Error
}

func (r *tokenRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&web3LoginTokenModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
